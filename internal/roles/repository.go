package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-labs/portico/internal/platform/db"
	"github.com/portico-labs/portico/internal/shared"
)

// Repository defines persistence operations for roles and role links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	LockOwner(ctx context.Context, owner Owner) error
	CurrentRoleNames(ctx context.Context, owner Owner) ([]string, error)
	AddLinks(ctx context.Context, owner Owner, roleIDs []int64) error
	RemoveLinksByName(ctx context.Context, owner Owner, names []string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// NewTxRepository binds a repository to an already open transaction, letting
// other modules fold role-link work into their own transactional unit.
func NewTxRepository(tx pgx.Tx) *PGRepository {
	return &PGRepository{db: tx}
}

// WithTx runs fn against a transaction-bound copy of the repository. A copy
// that is already transaction-bound reuses the open transaction so nested
// units commit together. Fresh transactions run read committed: the sync
// sequence reads the current link set after taking the owner lock, and that
// read must see what the previous lock holder committed.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if _, ok := r.db.(pgx.Tx); ok {
		return fn(ctx, r)
	}
	return db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	return r.scanRole(r.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by exact name match.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return r.scanRole(r.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name))
}

// CreateRole inserts a new role. A duplicate name yields shared.ErrConflict.
// The insert suppresses the unique violation instead of raising it, so a
// conflict inside an enclosing transaction does not abort it and the caller
// may retry the lookup in the same transactional unit.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role, err := r.scanRole(r.db.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name, description, created_at, updated_at`, name, description))
	if err != nil {
		// DO NOTHING returns no row on a duplicate name.
		if errors.Is(err, shared.ErrNotFound) || db.IsUniqueViolation(err) {
			return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrConflict)
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole renames a role or changes its description.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, err := r.scanRole(r.db.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`, id, name, description))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrConflict)
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role. Link rows referencing it are removed by the
// ON DELETE CASCADE constraints, so no orphan links survive.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LockOwner takes a row-level lock on the owner record, serializing
// concurrent synchronization for the same owner.
func (r *PGRepository) LockOwner(ctx context.Context, owner Owner) error {
	var query string
	switch owner.Kind {
	case OwnerUser:
		query = `SELECT id FROM users WHERE id = $1 FOR UPDATE`
	case OwnerWebApp:
		query = `SELECT id FROM webapps WHERE id = $1 FOR UPDATE`
	default:
		return fmt.Errorf("roles: unknown owner kind %q", owner.Kind)
	}
	var id int64
	if err := r.db.QueryRow(ctx, query, owner.ID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}

// CurrentRoleNames returns the owner's effective role-name set.
func (r *PGRepository) CurrentRoleNames(ctx context.Context, owner Owner) ([]string, error) {
	var query string
	switch owner.Kind {
	case OwnerUser:
		query = `SELECT r.name FROM roles r JOIN user_roles l ON l.role_id = r.id WHERE l.user_id = $1 ORDER BY r.name`
	case OwnerWebApp:
		query = `SELECT r.name FROM roles r JOIN webapp_roles l ON l.role_id = r.id WHERE l.webapp_id = $1 ORDER BY r.name`
	default:
		return nil, fmt.Errorf("roles: unknown owner kind %q", owner.Kind)
	}
	rows, err := r.db.Query(ctx, query, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddLinks creates owner-role link rows. Existing pairs are left untouched so
// a link pair can exist at most once.
func (r *PGRepository) AddLinks(ctx context.Context, owner Owner, roleIDs []int64) error {
	var query string
	switch owner.Kind {
	case OwnerUser:
		query = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	case OwnerWebApp:
		query = `INSERT INTO webapp_roles (webapp_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	default:
		return fmt.Errorf("roles: unknown owner kind %q", owner.Kind)
	}
	for _, roleID := range roleIDs {
		if _, err := r.db.Exec(ctx, query, owner.ID, roleID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLinksByName deletes the owner's link rows for the named roles.
func (r *PGRepository) RemoveLinksByName(ctx context.Context, owner Owner, names []string) error {
	if len(names) == 0 {
		return nil
	}
	var query string
	switch owner.Kind {
	case OwnerUser:
		query = `DELETE FROM user_roles l USING roles r WHERE l.role_id = r.id AND l.user_id = $1 AND r.name = ANY($2)`
	case OwnerWebApp:
		query = `DELETE FROM webapp_roles l USING roles r WHERE l.role_id = r.id AND l.webapp_id = $1 AND r.name = ANY($2)`
	default:
		return fmt.Errorf("roles: unknown owner kind %q", owner.Kind)
	}
	_, err := r.db.Exec(ctx, query, owner.ID, names)
	return err
}

func (r *PGRepository) scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

var _ Repository = (*PGRepository)(nil)
