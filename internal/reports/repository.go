package reports

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetDivisionSummaries(ctx context.Context, period Period) ([]DivisionSummary, error)
	ListSubmissionRows(ctx context.Context, period Period) ([]SubmissionRow, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// bounds turns a Period into closed query bounds; unbounded sides get
// sentinels so one query shape serves every combination.
func bounds(period Period) (time.Time, time.Time) {
	from := period.From
	to := period.To
	if to.IsZero() {
		to = time.Now()
	}
	return from, to
}

func (r *postgresRepository) GetDivisionSummaries(ctx context.Context, period Period) ([]DivisionSummary, error) {
	from, to := bounds(period)
	summaries := []DivisionSummary{}
	query := `
		SELECT
			d.id   AS division_id,
			d.name AS division_name,
			COUNT(s.id) AS created,
			COUNT(s.id) FILTER (WHERE s.status = 'approved') AS approved,
			COUNT(s.id) FILTER (WHERE s.status = 'rejected') AS rejected,
			COUNT(s.id) FILTER (WHERE s.status NOT IN ('approved', 'rejected')) AS in_flight,
			AVG(EXTRACT(EPOCH FROM (s.approved_at - s.created_at)) / 3600.0)
				FILTER (WHERE s.approved_at IS NOT NULL) AS avg_turnaround_hours
		FROM divisions d
		JOIN workflows w ON w.division_id = d.id
		JOIN submissions s ON s.workflow_id = w.id
		WHERE s.created_at >= $1 AND s.created_at <= $2
		GROUP BY d.id, d.name
		ORDER BY d.name`
	if err := r.db.SelectContext(ctx, &summaries, query, from, to); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *postgresRepository) ListSubmissionRows(ctx context.Context, period Period) ([]SubmissionRow, error) {
	from, to := bounds(period)
	rows := []SubmissionRow{}
	query := `
		SELECT
			s.id,
			s.title,
			s.status,
			s.current_step,
			u.name AS creator_name,
			d.name AS division_name,
			w.name AS workflow_name,
			s.created_at,
			s.approved_at
		FROM submissions s
		JOIN users u ON u.id = s.creator_id
		JOIN divisions d ON d.id = s.division_id
		JOIN workflows w ON w.id = s.workflow_id
		WHERE s.created_at >= $1 AND s.created_at <= $2
		ORDER BY s.created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}
