package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casinha/portal/internal/platform/db"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of members and the total count for the filter.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]Member, int, error) {
	status := pgtype.Text{String: string(filter.Status), Valid: filter.Status != ""}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE ($1::text IS NULL OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id, u.name, u.email, r.id, r.name, u.status, u.last_active_at,
       COALESCE(array_agg(ra.area ORDER BY ra.area) FILTER (WHERE ra.area IS NOT NULL), '{}')
FROM users u
JOIN roles r ON r.id = u.role_id
LEFT JOIN role_areas ra ON ra.role_id = r.id
WHERE ($1::text IS NULL OR u.status = $1)
GROUP BY u.id, r.id
ORDER BY u.name
LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var (
			m          Member
			status     string
			lastActive pgtype.Timestamptz
			areas      []string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.RoleID, &m.RoleName, &status, &lastActive, &areas); err != nil {
			return nil, 0, err
		}
		m.Status = rbac.MembershipStatus(status)
		if lastActive.Valid {
			t := lastActive.Time
			m.LastActiveAt = &t
		}
		for _, raw := range areas {
			if a, err := rbac.ParseArea(raw); err == nil {
				m.Areas = append(m.Areas, a)
			}
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// TouchLastActive records a heartbeat.
func (r *Repository) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = $2 WHERE id = $1`, userID, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole makes roleID the member's current role and appends the assignment to
// the history in the same transaction. Assigning the current role is a no-op.
func (r *Repository) AssignRole(ctx context.Context, actorID, userID, roleID int64, at time.Time) (bool, error) {
	changed := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if current == roleID {
			return nil
		}
		var roleName string
		if err := tx.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, roleID).Scan(&roleName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET role_id = $2 WHERE id = $1`, userID, roleID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_role_history (user_id, role_id, role_name, assigned_by, assigned_at) VALUES ($1, $2, $3, $4, $5)`,
			userID, roleID, roleName, pgtype.Int8{Int64: actorID, Valid: actorID > 0}, at.UTC())
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// History lists a member's role assignments, newest first.
func (r *Repository) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, `SELECT role_id, role_name, assigned_by, assigned_at FROM user_role_history WHERE user_id = $1 ORDER BY assigned_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			roleID     pgtype.Int8
			assignedBy pgtype.Int8
		)
		if err := rows.Scan(&roleID, &e.RoleName, &assignedBy, &e.AssignedAt); err != nil {
			return nil, err
		}
		if roleID.Valid {
			e.RoleID = &roleID.Int64
		}
		if assignedBy.Valid {
			e.AssignedBy = &assignedBy.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetStatus updates a member's membership status.
func (r *Repository) SetStatus(ctx context.Context, userID int64, status rbac.MembershipStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, userID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
