package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casinha/portal/internal/platform/db"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectRoles = `
SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
       COALESCE(array_agg(DISTINCT ra.area) FILTER (WHERE ra.area IS NOT NULL), '{}'),
       (SELECT count(*) FROM users u WHERE u.role_id = r.id)
FROM roles r
LEFT JOIN role_areas ra ON ra.role_id = r.id`

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, selectRoles+` GROUP BY r.id ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole loads one role.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, selectRoles+` WHERE r.id = $1 GROUP BY r.id`, id)
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, shared.ErrNotFound
	}
	return role, err
}

// CreateRole inserts a role and its areas in one transaction.
func (r *Repository) CreateRole(ctx context.Context, name, description string, areas []rbac.Area) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`, name, description).Scan(&id)
		if err != nil {
			return mapWriteError(err)
		}
		return insertAreas(ctx, tx, id, areas)
	})
	return id, err
}

// UpdateRole replaces name, description and areas.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, areas []rbac.Area) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`, id, name, description)
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_areas WHERE role_id = $1`, id); err != nil {
			return err
		}
		return insertAreas(ctx, tx, id, areas)
	})
}

// DeleteRole removes a role nobody holds. Role history keeps the role name snapshot.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var holders int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM users WHERE role_id = $1`, id).Scan(&holders); err != nil {
			return err
		}
		if holders > 0 {
			return ErrRoleInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func insertAreas(ctx context.Context, tx pgx.Tx, roleID int64, areas []rbac.Area) error {
	rows := make([][]any, 0, len(areas))
	for _, a := range areas {
		rows = append(rows, []any{roleID, string(a)})
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"role_areas"}, []string{"role_id", "area"}, pgx.CopyFromRows(rows))
	return err
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role  Role
		areas []string
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt, &areas, &role.Members); err != nil {
		return Role{}, err
	}
	role.Areas = make([]rbac.Area, 0, len(areas))
	for _, raw := range areas {
		if a, err := rbac.ParseArea(raw); err == nil {
			role.Areas = append(role.Areas, a)
		}
	}
	return role, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrRoleNameTaken
		case pgForeignKeyViolation:
			return ErrRoleInUse
		}
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
