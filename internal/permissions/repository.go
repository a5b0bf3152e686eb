package permissions

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetGlobalForSubdivision(ctx context.Context, subdivisionID uuid.UUID) (*GlobalPermission, error)
	UpsertGlobal(ctx context.Context, perm *GlobalPermission) error
	ListGlobal(ctx context.Context) ([]GlobalPermission, error)

	GetStepPermission(ctx context.Context, workflowStepID, subdivisionID uuid.UUID) (*StepPermission, error)
	ListStepPermissions(ctx context.Context, workflowStepID uuid.UUID) ([]StepPermission, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetGlobalForSubdivision(ctx context.Context, subdivisionID uuid.UUID) (*GlobalPermission, error) {
	var perm GlobalPermission
	err := r.db.GetContext(ctx, &perm, "SELECT * FROM global_subdivision_permissions WHERE subdivision_id = $1", subdivisionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &perm, err
}

func (r *postgresRepository) UpsertGlobal(ctx context.Context, perm *GlobalPermission) error {
	query := `
		INSERT INTO global_subdivision_permissions (
			id, subdivision_id, can_view, can_approve, can_reject, can_request_next, can_edit, can_delete
		) VALUES (
			:id, :subdivision_id, :can_view, :can_approve, :can_reject, :can_request_next, :can_edit, :can_delete
		)
		ON CONFLICT (subdivision_id) DO UPDATE SET
			can_view = EXCLUDED.can_view,
			can_approve = EXCLUDED.can_approve,
			can_reject = EXCLUDED.can_reject,
			can_request_next = EXCLUDED.can_request_next,
			can_edit = EXCLUDED.can_edit,
			can_delete = EXCLUDED.can_delete,
			updated_at = NOW()`
	_, err := r.db.NamedExecContext(ctx, query, perm)
	return err
}

func (r *postgresRepository) ListGlobal(ctx context.Context) ([]GlobalPermission, error) {
	var perms []GlobalPermission
	err := r.db.SelectContext(ctx, &perms, "SELECT * FROM global_subdivision_permissions")
	return perms, err
}

func (r *postgresRepository) GetStepPermission(ctx context.Context, workflowStepID, subdivisionID uuid.UUID) (*StepPermission, error) {
	var perm StepPermission
	err := r.db.GetContext(ctx, &perm,
		"SELECT * FROM workflow_step_permissions WHERE workflow_step_id = $1 AND subdivision_id = $2",
		workflowStepID, subdivisionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &perm, err
}

func (r *postgresRepository) ListStepPermissions(ctx context.Context, workflowStepID uuid.UUID) ([]StepPermission, error) {
	var perms []StepPermission
	err := r.db.SelectContext(ctx, &perms, "SELECT * FROM workflow_step_permissions WHERE workflow_step_id = $1", workflowStepID)
	return perms, err
}
