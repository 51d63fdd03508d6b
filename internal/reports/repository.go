package reports

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

// ListReports returns reports of the given areas, newest first. A nil areas slice lists every report.
func (r *Repository) ListReports(ctx context.Context, areas []rbac.Area) ([]Report, error) {
	var filter []string
	if areas != nil {
		filter = make([]string, 0, len(areas))
		for _, a := range areas {
			filter = append(filter, string(a))
		}
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, title, area, summary, author_id, created_at
FROM reports
WHERE $1::text[] IS NULL OR area = ANY($1)
ORDER BY created_at DESC, id DESC`, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// GetReport loads a report with its attachments.
func (r *Repository) GetReport(ctx context.Context, id int64) (Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, `SELECT id, title, area, summary, author_id, created_at FROM reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, shared.ErrNotFound
		}
		return Report{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, file_name, content_type, object_key FROM report_attachments WHERE report_id = $1 ORDER BY id`, id)
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.FileName, &a.ContentType, &a.ObjectKey); err != nil {
			return Report{}, err
		}
		rep.Attachments = append(rep.Attachments, a)
	}
	return rep, rows.Err()
}

// CreateReport inserts the report and its attachment rows in one transaction.
func (r *Repository) CreateReport(ctx context.Context, rep Report) (Report, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO reports (title, area, summary, author_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			rep.Title, string(rep.Area), rep.Summary, rep.AuthorID).Scan(&rep.ID, &rep.CreatedAt)
		if err != nil {
			return err
		}
		for i := range rep.Attachments {
			a := &rep.Attachments[i]
			err := tx.QueryRow(ctx, `INSERT INTO report_attachments (report_id, file_name, content_type, object_key) VALUES ($1, $2, $3, $4) RETURNING id`,
				rep.ID, a.FileName, a.ContentType, a.ObjectKey).Scan(&a.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rep, err
}

// DeleteReport removes the report and its attachment rows and returns the
// attachment keys. authorize sees the locked report's area first; an error from
// it rolls the transaction back.
func (r *Repository) DeleteReport(ctx context.Context, id int64, authorize func(area rbac.Area) error) ([]string, error) {
	var keys []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var area string
		if err := tx.QueryRow(ctx, `SELECT area FROM reports WHERE id = $1 FOR UPDATE`, id).Scan(&area); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := authorize(rbac.Area(area)); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `DELETE FROM report_attachments WHERE report_id = $1 RETURNING object_key`, id)
		if err != nil {
			return err
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scanReport(row pgx.Row) (Report, error) {
	var (
		rep  Report
		area string
	)
	if err := row.Scan(&rep.ID, &rep.Title, &area, &rep.Summary, &rep.AuthorID, &rep.CreatedAt); err != nil {
		return Report{}, err
	}
	rep.Area = rbac.Area(area)
	return rep, nil
}

var _ RepositoryPort = (*Repository)(nil)
