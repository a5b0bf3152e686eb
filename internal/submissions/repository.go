package submissions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
)

type Repository interface {
	CreateSubmission(ctx context.Context, sub *Submission) error
	GetSubmissionByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Submission, error)
	ListInboxForDivision(ctx context.Context, divisionID uuid.UUID, limit, offset int) ([]Submission, error)

	ListSteps(ctx context.Context, submissionID uuid.UUID) ([]SubmissionStep, error)
	GetStepByOrder(ctx context.Context, submissionID uuid.UUID, order int) (*SubmissionStep, error)

	ApplyTransition(ctx context.Context, sub *Submission, step *SubmissionStep) error
	UpdateSubmission(ctx context.Context, sub *Submission) error
	DeleteSubmission(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// CreateSubmission persists the submission row and its full step ledger in
// one transaction. The ledger must come out complete or not at all.
func (r *postgresRepository) CreateSubmission(ctx context.Context, sub *Submission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO submissions (
			id, creator_id, division_id, workflow_id, title, description,
			file_bucket, file_key, status, current_step, waiting_for,
			form_payload, row_version
		) VALUES (
			:id, :creator_id, :division_id, :workflow_id, :title, :description,
			:file_bucket, :file_key, :status, :current_step, :waiting_for,
			:form_payload, :row_version
		)`
	if _, err := tx.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	stepQuery := `
		INSERT INTO submission_workflow_steps (
			id, submission_id, workflow_step_id, step_order, division_id,
			division_name, role_label, status, actor_id, acted_at, note
		) VALUES (
			:id, :submission_id, :workflow_step_id, :step_order, :division_id,
			:division_name, :role_label, :status, :actor_id, :acted_at, :note
		)`
	for i := range sub.Steps {
		if _, err := tx.NamedExecContext(ctx, stepQuery, &sub.Steps[i]); err != nil {
			return fmt.Errorf("insert ledger row %d: %w", sub.Steps[i].StepOrder, err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var sub Submission
	err := r.db.GetContext(ctx, &sub, "SELECT * FROM submissions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &sub, err
}

func (r *postgresRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Submission, error) {
	var subs []Submission
	err := r.db.SelectContext(ctx, &subs,
		"SELECT * FROM submissions WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		creatorID, limit, offset)
	return subs, err
}

func (r *postgresRepository) ListInboxForDivision(ctx context.Context, divisionID uuid.UUID, limit, offset int) ([]Submission, error) {
	var subs []Submission
	err := r.db.SelectContext(ctx, &subs,
		`SELECT * FROM submissions
		 WHERE division_id = $1 AND status NOT IN ('approved', 'rejected')
		 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		divisionID, limit, offset)
	return subs, err
}

func (r *postgresRepository) ListSteps(ctx context.Context, submissionID uuid.UUID) ([]SubmissionStep, error) {
	var steps []SubmissionStep
	err := r.db.SelectContext(ctx, &steps,
		"SELECT * FROM submission_workflow_steps WHERE submission_id = $1 ORDER BY step_order",
		submissionID)
	return steps, err
}

func (r *postgresRepository) GetStepByOrder(ctx context.Context, submissionID uuid.UUID, order int) (*SubmissionStep, error) {
	var step SubmissionStep
	err := r.db.GetContext(ctx, &step,
		"SELECT * FROM submission_workflow_steps WHERE submission_id = $1 AND step_order = $2",
		submissionID, order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &step, err
}

// ApplyTransition writes one action's full effect: the acted-on ledger row
// plus the submission pointer/status, in one transaction. The submission
// update carries an optimistic row_version check; losing a race surfaces as
// ErrConflict and nothing is written.
func (r *postgresRepository) ApplyTransition(ctx context.Context, sub *Submission, step *SubmissionStep) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stepQuery := `
		UPDATE submission_workflow_steps SET
			status = :status,
			actor_id = :actor_id,
			acted_at = :acted_at,
			note = :note
		WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, stepQuery, step); err != nil {
		return fmt.Errorf("update ledger row: %w", err)
	}

	subQuery := `
		UPDATE submissions SET
			division_id = :division_id,
			status = :status,
			current_step = :current_step,
			waiting_for = :waiting_for,
			approved_by = :approved_by,
			approved_at = :approved_at,
			approval_note = :approval_note,
			row_version = row_version + 1,
			updated_at = NOW()
		WHERE id = :id AND row_version = :row_version`
	res, err := tx.NamedExecContext(ctx, subQuery, sub)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrConflict
	}
	sub.RowVersion++

	return tx.Commit()
}

func (r *postgresRepository) UpdateSubmission(ctx context.Context, sub *Submission) error {
	query := `
		UPDATE submissions SET
			title = :title,
			description = :description,
			file_bucket = :file_bucket,
			file_key = :file_key,
			form_payload = :form_payload,
			row_version = row_version + 1,
			updated_at = NOW()
		WHERE id = :id AND row_version = :row_version`
	res, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrConflict
	}
	sub.RowVersion++
	return nil
}

func (r *postgresRepository) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_workflow_steps WHERE submission_id = $1", id); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM submissions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}

	return tx.Commit()
}
