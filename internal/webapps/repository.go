package webapps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-labs/portico/internal/platform/db"
	"github.com/portico-labs/portico/internal/roles"
	"github.com/portico-labs/portico/internal/shared"
)

// RepositoryPort defines data access methods for the webapp catalog.
type RepositoryPort interface {
	ListWebApps(ctx context.Context) ([]WebApp, error)
	GetWebApp(ctx context.Context, id int64) (WebApp, error)
	CreateWebApp(ctx context.Context, name, url, description string, roleNames []string) (WebApp, error)
	UpdateWebApp(ctx context.Context, id int64, name, url, description string, roleNames []string, syncRoles bool) (WebApp, error)
	DeleteWebApp(ctx context.Context, id int64) error
	RecordHealth(ctx context.Context, id int64, healthy bool, checkedAt time.Time) error
}

const webappColumns = `w.id, w.name, w.url, w.description, w.healthy, w.checked_at, w.created_at, w.updated_at,
	COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')`

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListWebApps returns the full catalog with required-role sets.
func (r *PGRepository) ListWebApps(ctx context.Context) ([]WebApp, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+webappColumns+`
		 FROM webapps w
		 LEFT JOIN webapp_roles l ON l.webapp_id = w.id
		 LEFT JOIN roles r ON r.id = l.role_id
		 GROUP BY w.id
		 ORDER BY w.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var catalog []WebApp
	for rows.Next() {
		app, err := scanWebApp(rows)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, app)
	}
	return catalog, rows.Err()
}

// GetWebApp fetches a registration with its required-role set.
func (r *PGRepository) GetWebApp(ctx context.Context, id int64) (WebApp, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+webappColumns+`
		 FROM webapps w
		 LEFT JOIN webapp_roles l ON l.webapp_id = w.id
		 LEFT JOIN roles r ON r.id = l.role_id
		 WHERE w.id = $1
		 GROUP BY w.id`, id)
	if err != nil {
		return WebApp{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return WebApp{}, err
		}
		return WebApp{}, shared.ErrNotFound
	}
	return scanWebApp(rows)
}

// CreateWebApp inserts a registration together with its required-role links;
// insert and link rows commit as one unit. The returned record is re-read so
// the role set carries the same deduplicated, name-sorted form as every
// other read path.
func (r *PGRepository) CreateWebApp(ctx context.Context, name, url, description string, roleNames []string) (WebApp, error) {
	var id int64
	err := db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO webapps (name, url, description) VALUES ($1, $2, $3) RETURNING id`,
			name, url, description,
		).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("webapp %q: %w", name, shared.ErrConflict)
			}
			return err
		}
		return linkRoles(ctx, tx, id, roleNames)
	})
	if err != nil {
		return WebApp{}, err
	}
	return r.GetWebApp(ctx, id)
}

// UpdateWebApp persists the merged attributes and, when syncRoles is set,
// reconciles the required-role links in the same transaction.
func (r *PGRepository) UpdateWebApp(ctx context.Context, id int64, name, url, description string, roleNames []string, syncRoles bool) (WebApp, error) {
	err := db.WithTxOptions(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE webapps SET name = $2, url = $3, description = $4, updated_at = now() WHERE id = $1`,
			id, name, url, description)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("webapp %q: %w", name, shared.ErrConflict)
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if syncRoles {
			rtx := roles.NewTxRepository(tx)
			return roles.NewSyncer(rtx).Sync(ctx, roles.Owner{Kind: roles.OwnerWebApp, ID: id}, roleNames)
		}
		return nil
	})
	if err != nil {
		return WebApp{}, err
	}
	return r.GetWebApp(ctx, id)
}

// DeleteWebApp removes a registration. Link rows cascade with the row.
func (r *PGRepository) DeleteWebApp(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webapps WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordHealth stores the latest reachability probe result.
func (r *PGRepository) RecordHealth(ctx context.Context, id int64, healthy bool, checkedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE webapps SET healthy = $2, checked_at = $3 WHERE id = $1`,
		id, healthy, checkedAt)
	return err
}

func scanWebApp(rows pgx.Rows) (WebApp, error) {
	var app WebApp
	err := rows.Scan(&app.ID, &app.Name, &app.URL, &app.Description, &app.Healthy, &app.CheckedAt,
		&app.CreatedAt, &app.UpdatedAt, &app.RequiredRoles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WebApp{}, shared.ErrNotFound
		}
		return WebApp{}, err
	}
	return app, nil
}

func linkRoles(ctx context.Context, tx pgx.Tx, webappID int64, roleNames []string) error {
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
	return rtx.AddLinks(ctx, roles.Owner{Kind: roles.OwnerWebApp, ID: webappID}, roleIDs)
}

var _ RepositoryPort = (*PGRepository)(nil)
