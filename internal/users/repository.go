package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-labs/portico/internal/platform/db"
	"github.com/portico-labs/portico/internal/roles"
	"github.com/portico-labs/portico/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, username, passwordHash string, roleNames []string) (User, error)
	UpdateUser(ctx context.Context, id int64, username, passwordHash string, roleNames []string, syncRoles bool) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

const userColumns = `u.id, u.username, u.password_hash, u.created_at, u.updated_at,
	COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')`

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListUsers returns user accounts with their effective role sets.
func (r *PGRepository) ListUsers(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 LEFT JOIN user_roles l ON l.user_id = u.id
		 LEFT JOIN roles r ON r.id = l.role_id
		 GROUP BY u.id
		 ORDER BY u.id
		 OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt, &user.Roles); err != nil {
			return nil, err
		}
		list = append(list, user)
	}
	return list, rows.Err()
}

// GetUser fetches a user with its role set.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 LEFT JOIN user_roles l ON l.user_id = u.id
		 LEFT JOIN roles r ON r.id = l.role_id
		 WHERE u.id = $1
		 GROUP BY u.id`, id,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt, &user.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// CreateUser inserts a user together with its initial role links; the insert
// and the link rows commit as one unit. The returned record is re-read so
// the role set carries the same deduplicated, name-sorted form as every
// other read path.
func (r *PGRepository) CreateUser(ctx context.Context, username, passwordHash string, roleNames []string) (User, error) {
	var id int64
	err := db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
			username, passwordHash,
		).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("username %q: %w", username, shared.ErrConflict)
			}
			return err
		}
		return linkRoles(ctx, tx, id, roleNames)
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, id)
}

// UpdateUser persists the merged account attributes and, when syncRoles is
// set, reconciles the role links in the same transaction.
func (r *PGRepository) UpdateUser(ctx context.Context, id int64, username, passwordHash string, roleNames []string, syncRoles bool) (User, error) {
	var user User
	err := db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE users SET username = $2, password_hash = $3, updated_at = now()
			 WHERE id = $1
			 RETURNING id, username, password_hash, created_at, updated_at`,
			id, username, passwordHash,
		).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("username %q: %w", username, shared.ErrConflict)
			}
			return err
		}
		if syncRoles {
			rtx := roles.NewTxRepository(tx)
			return roles.NewSyncer(rtx).Sync(ctx, roles.Owner{Kind: roles.OwnerUser, ID: id}, roleNames)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, id)
}

// DeleteUser removes an account. Link rows cascade with the row.
func (r *PGRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func linkRoles(ctx context.Context, tx pgx.Tx, userID int64, roleNames []string) error {
	if len(roleNames) == 0 {
		return nil
	}
	rtx := roles.NewTxRepository(tx)
	resolved, err := roles.NewRegistry(rtx).ResolveOrCreate(ctx, roleNames)
	if err != nil {
		return err
	}
	roleIDs := make([]int64, len(resolved))
	for i, role := range resolved {
		roleIDs[i] = role.ID
	}
	return rtx.AddLinks(ctx, roles.Owner{Kind: roles.OwnerUser, ID: userID}, roleIDs)
}

var _ RepositoryPort = (*PGRepository)(nil)
