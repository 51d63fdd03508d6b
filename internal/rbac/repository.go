package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casinha/portal/internal/shared"
)

// Repository is the PostgreSQL backed UserStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const findUserQuery = `
SELECT u.id, u.name, u.email, u.status, u.last_active_at,
       r.id, r.name, r.description,
       COALESCE(array_agg(ra.area ORDER BY ra.area) FILTER (WHERE ra.area IS NOT NULL), '{}')
FROM users u
JOIN roles r ON r.id = u.role_id
LEFT JOIN role_areas ra ON ra.role_id = r.id
WHERE u.id = $1
GROUP BY u.id, r.id`

// FindUser loads the user, the current role and the role's areas.
func (r *Repository) FindUser(ctx context.Context, id int64) (*User, error) {
	var (
		user       User
		status     string
		lastActive pgtype.Timestamptz
		areas      []string
	)
	err := r.pool.QueryRow(ctx, findUserQuery, id).Scan(
		&user.ID, &user.Name, &user.Email, &status, &lastActive,
		&user.Role.ID, &user.Role.Name, &user.Role.Description,
		&areas,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Status = MembershipStatus(status)
	if lastActive.Valid {
		user.LastActiveAt = lastActive.Time
	}
	user.Role.Areas = make([]Area, 0, len(areas))
	for _, raw := range areas {
		if a, err := ParseArea(raw); err == nil {
			user.Role.Areas = append(user.Role.Areas, a)
		}
	}
	return &user, nil
}

var _ UserStore = (*Repository)(nil)
