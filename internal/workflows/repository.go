package workflows

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
)

type Repository interface {
	CreateWorkflow(ctx context.Context, workflow *Workflow) error
	UpdateWorkflow(ctx context.Context, workflow *Workflow) error
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	GetActiveWorkflowForDivision(ctx context.Context, divisionID uuid.UUID) (*Workflow, error)
	DivisionExists(ctx context.Context, id uuid.UUID) (bool, error)
	DocumentTypeExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateWorkflow(ctx context.Context, workflow *Workflow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO workflows (
			id, name, division_id, document_type_id, is_active, total_steps
		) VALUES (
			:id, :name, :division_id, :document_type_id, :is_active, :total_steps
		)`
	if _, err := tx.NamedExecContext(ctx, query, workflow); err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	if err := r.insertSteps(ctx, tx, workflow.Steps); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateWorkflow replaces the step list transactionally. Permission rows
// configured before the edit are captured by (step_order, division_id) and
// restored onto any new step that does not carry explicit permissions, so
// cosmetic edits keep admin-configured step permissions intact.
func (r *postgresRepository) UpdateWorkflow(ctx context.Context, workflow *Workflow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	snapshot, err := r.snapshotStepPermissions(ctx, tx, workflow.ID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM workflow_step_permissions WHERE workflow_step_id IN (SELECT id FROM workflow_steps WHERE workflow_id = $1)",
		workflow.ID); err != nil {
		return fmt.Errorf("delete step permissions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", workflow.ID); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}

	restoreSnapshot(workflow.Steps, snapshot)

	if err := r.insertSteps(ctx, tx, workflow.Steps); err != nil {
		return err
	}

	query := `
		UPDATE workflows SET
			name = :name,
			division_id = :division_id,
			document_type_id = :document_type_id,
			is_active = :is_active,
			total_steps = :total_steps,
			updated_at = NOW()
		WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, workflow); err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepository) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM workflow_step_permissions WHERE workflow_step_id IN (SELECT id FROM workflow_steps WHERE workflow_id = $1)",
		id); err != nil {
		return fmt.Errorf("delete step permissions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", id); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	var workflow Workflow
	err := r.db.GetContext(ctx, &workflow, "SELECT * FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, &workflow); err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *postgresRepository) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var workflows []Workflow
	err := r.db.SelectContext(ctx, &workflows, "SELECT * FROM workflows ORDER BY created_at DESC")
	return workflows, err
}

func (r *postgresRepository) GetActiveWorkflowForDivision(ctx context.Context, divisionID uuid.UUID) (*Workflow, error) {
	var workflow Workflow
	err := r.db.GetContext(ctx, &workflow,
		"SELECT * FROM workflows WHERE division_id = $1 AND is_active = true ORDER BY created_at DESC LIMIT 1",
		divisionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, &workflow); err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *postgresRepository) DivisionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM divisions WHERE id = $1)", id)
	return exists, err
}

func (r *postgresRepository) DocumentTypeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM document_types WHERE id = $1)", id)
	return exists, err
}

func (r *postgresRepository) loadSteps(ctx context.Context, workflow *Workflow) error {
	if err := r.db.SelectContext(ctx, &workflow.Steps,
		"SELECT * FROM workflow_steps WHERE workflow_id = $1 ORDER BY step_order",
		workflow.ID); err != nil {
		return fmt.Errorf("load steps: %w", err)
	}
	for i := range workflow.Steps {
		step := &workflow.Steps[i]
		if err := r.db.SelectContext(ctx, &step.Permissions,
			"SELECT * FROM workflow_step_permissions WHERE workflow_step_id = $1",
			step.ID); err != nil {
			return fmt.Errorf("load step permissions: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) insertSteps(ctx context.Context, tx *sqlx.Tx, steps []WorkflowStep) error {
	stepQuery := `
		INSERT INTO workflow_steps (
			id, workflow_id, step_order, division_id, role_label, allowed_actions, instructions, is_final
		) VALUES (
			:id, :workflow_id, :step_order, :division_id, :role_label, :allowed_actions, :instructions, :is_final
		)`
	permQuery := `
		INSERT INTO workflow_step_permissions (
			id, workflow_step_id, subdivision_id, can_view, can_approve, can_reject, can_request_next
		) VALUES (
			:id, :workflow_step_id, :subdivision_id, :can_view, :can_approve, :can_reject, :can_request_next
		)`
	for i := range steps {
		step := &steps[i]
		if _, err := tx.NamedExecContext(ctx, stepQuery, step); err != nil {
			return fmt.Errorf("insert step %d: %w", step.StepOrder, err)
		}
		for j := range step.Permissions {
			if _, err := tx.NamedExecContext(ctx, permQuery, &step.Permissions[j]); err != nil {
				return fmt.Errorf("insert step %d permission: %w", step.StepOrder, err)
			}
		}
	}
	return nil
}

type permissionKey struct {
	order      int
	divisionID uuid.UUID
}

// restoreSnapshot fills permissions onto steps that arrived without an
// explicit set, matching captured rows by (order, division). A step with a
// non-nil (even empty) set keeps what it was given.
func restoreSnapshot(steps []WorkflowStep, snapshot map[permissionKey][]permissions.StepPermission) {
	for i := range steps {
		step := &steps[i]
		if step.Permissions != nil {
			continue
		}
		restored := snapshot[permissionKey{order: step.StepOrder, divisionID: step.DivisionID}]
		for _, perm := range restored {
			perm.ID = uuid.New()
			perm.WorkflowStepID = step.ID
			step.Permissions = append(step.Permissions, perm)
		}
	}
}

type snapshotRow struct {
	permissions.StepPermission
	StepOrder  int       `db:"step_order"`
	DivisionID uuid.UUID `db:"division_id"`
}

func (r *postgresRepository) snapshotStepPermissions(ctx context.Context, tx *sqlx.Tx, workflowID uuid.UUID) (map[permissionKey][]permissions.StepPermission, error) {
	var rows []snapshotRow
	query := `
		SELECT sp.*, ws.step_order, ws.division_id
		FROM workflow_step_permissions sp
		JOIN workflow_steps ws ON ws.id = sp.workflow_step_id
		WHERE ws.workflow_id = $1`
	if err := tx.SelectContext(ctx, &rows, query, workflowID); err != nil {
		return nil, fmt.Errorf("snapshot step permissions: %w", err)
	}

	snapshot := make(map[permissionKey][]permissions.StepPermission, len(rows))
	for _, row := range rows {
		key := permissionKey{order: row.StepOrder, divisionID: row.DivisionID}
		snapshot[key] = append(snapshot[key], row.StepPermission)
	}
	return snapshot, nil
}
