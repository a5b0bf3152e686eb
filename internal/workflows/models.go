package workflows

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
)

// Action names a division may take while holding a step.
const (
	ActionApprove     = "Approve"
	ActionReject      = "Reject"
	ActionRequestNext = "Request To Next"
)

// Workflow is the approval route owned by one division. Its steps are copied
// onto every submission at creation time; later edits never touch in-flight
// submissions' materialized steps.
type Workflow struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	DivisionID     uuid.UUID `json:"division_id" db:"division_id"`
	DocumentTypeID uuid.UUID `json:"document_type_id" db:"document_type_id"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	TotalSteps     int       `json:"total_steps" db:"total_steps"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	Steps []WorkflowStep `json:"steps,omitempty" db:"-"`
}

// TargetDivisionID is the owner of the final step, derived from the step
// list rather than stored.
func (w *Workflow) TargetDivisionID() uuid.UUID {
	for _, step := range w.Steps {
		if step.IsFinal {
			return step.DivisionID
		}
	}
	return uuid.Nil
}

// WorkflowStep is one ordered entry in a workflow definition.
type WorkflowStep struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	WorkflowID     uuid.UUID      `json:"workflow_id" db:"workflow_id"`
	StepOrder      int            `json:"step_order" db:"step_order"`
	DivisionID     uuid.UUID      `json:"division_id" db:"division_id"`
	RoleLabel      string         `json:"role_label" db:"role_label"`
	Instructions   string         `json:"instructions" db:"instructions"`
	AllowedActions pq.StringArray `json:"allowed_actions" db:"allowed_actions"`
	IsFinal        bool           `json:"is_final" db:"is_final"`

	Permissions []permissions.StepPermission `json:"permissions,omitempty" db:"-"`
}

// StepInput is the API shape for one step on create/update. Permissions are
// optional; on update an absent set means "restore what was configured for
// the same (order, division) before the edit".
type StepInput struct {
	DivisionID     uuid.UUID             `json:"division_id"`
	RoleLabel      string                `json:"role_label"`
	Instructions   string                `json:"instructions"`
	AllowedActions []string              `json:"allowed_actions"`
	Permissions    []StepPermissionInput `json:"permissions,omitempty"`
}

// StepPermissionInput is one subdivision's capability tuple for a step.
type StepPermissionInput struct {
	SubdivisionID  uuid.UUID `json:"subdivision_id"`
	CanView        bool      `json:"can_view"`
	CanApprove     bool      `json:"can_approve"`
	CanReject      bool      `json:"can_reject"`
	CanRequestNext bool      `json:"can_request_next"`
}
