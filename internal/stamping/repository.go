package stamping

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Enqueue(ctx context.Context, submissionID uuid.UUID) error
	ClaimBatch(ctx context.Context, batchSize, maxAttempts int, staleBefore time.Time) ([]StampJob, error)
	MarkDone(ctx context.Context, jobID uuid.UUID, stampKey string) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, reason string, maxAttempts int) error
	GetJobDetail(ctx context.Context, submissionID uuid.UUID) (*JobDetail, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Enqueue(ctx context.Context, submissionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO stamp_jobs (id, submission_id, status) VALUES ($1, $2, $3)",
		uuid.New(), submissionID, JobQueued)
	if err != nil {
		return fmt.Errorf("enqueue stamp job: %w", err)
	}
	return nil
}

// ClaimBatch atomically moves up to batchSize queued jobs to processing.
// Jobs stuck in processing since before staleBefore were claimed by a worker
// that died; they are claimed again. SKIP LOCKED lets multiple workers drain
// the queue without stepping on each other.
func (r *postgresRepository) ClaimBatch(ctx context.Context, batchSize, maxAttempts int, staleBefore time.Time) ([]StampJob, error) {
	var jobs []StampJob
	query := `
		UPDATE stamp_jobs SET
			status = 'processing',
			started_at = NOW()
		WHERE id IN (
			SELECT id FROM stamp_jobs
			WHERE (status = 'queued'
			       OR (status = 'processing' AND started_at < $3))
			  AND attempts < $2
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`
	if err := r.db.SelectContext(ctx, &jobs, query, batchSize, maxAttempts, staleBefore); err != nil {
		return nil, fmt.Errorf("claim stamp jobs: %w", err)
	}
	return jobs, nil
}

func (r *postgresRepository) MarkDone(ctx context.Context, jobID uuid.UUID, stampKey string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE stamp_jobs SET status = $2, stamp_key = $3, finished_at = NOW() WHERE id = $1",
		jobID, JobDone, stampKey)
	return err
}

// MarkFailed records the failure and requeues the job until it runs out of
// attempts.
func (r *postgresRepository) MarkFailed(ctx context.Context, jobID uuid.UUID, reason string, maxAttempts int) error {
	query := `
		UPDATE stamp_jobs SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'queued' END,
			finished_at = CASE WHEN attempts + 1 >= $3 THEN NOW() ELSE NULL END
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, jobID, reason, maxAttempts)
	return err
}

func (r *postgresRepository) GetJobDetail(ctx context.Context, submissionID uuid.UUID) (*JobDetail, error) {
	var detail JobDetail
	query := `
		SELECT s.id AS submission_id, s.title, s.approved_at, s.approval_note,
		       u.name AS approved_by, ws.division_name
		FROM submissions s
		LEFT JOIN users u ON u.id = s.approved_by
		LEFT JOIN submission_workflow_steps ws
		       ON ws.submission_id = s.id AND ws.step_order = s.current_step
		WHERE s.id = $1`
	err := r.db.GetContext(ctx, &detail, query, submissionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &detail, err
}
