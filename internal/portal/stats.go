package portal

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casinha/portal/internal/rbac"
)

// StatsPort provides the counters shown on the home page.
type StatsPort interface {
	CountActiveMembers(ctx context.Context) (int, error)
	CountRoles(ctx context.Context) (int, error)
	CountReports(ctx context.Context, areas []rbac.Area) (int, error)
}

// Repository reads home page counters from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountActiveMembers counts users with status ATIVO.
func (r *Repository) CountActiveMembers(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE status = $1`, string(rbac.StatusActive)).Scan(&n)
	return n, err
}

// CountRoles counts registered roles.
func (r *Repository) CountRoles(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&n)
	return n, err
}

// CountReports counts reports of the given areas. nil counts every report.
func (r *Repository) CountReports(ctx context.Context, areas []rbac.Area) (int, error) {
	var filter []string
	if areas != nil {
		filter = make([]string, 0, len(areas))
		for _, a := range areas {
			filter = append(filter, string(a))
		}
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE $1::text[] IS NULL OR area = ANY($1)`, filter).Scan(&n)
	return n, err
}

var _ StatsPort = (*Repository)(nil)
