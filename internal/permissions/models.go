package permissions

import (
	"time"

	"github.com/google/uuid"
)

// GlobalPermission is the system-wide capability row for one subdivision.
// One row per subdivision; governs cross-cutting list/edit/delete visibility
// independent of any specific workflow step.
type GlobalPermission struct {
	ID             uuid.UUID `json:"id" db:"id"`
	SubdivisionID  uuid.UUID `json:"subdivision_id" db:"subdivision_id"`
	CanView        bool      `json:"can_view" db:"can_view"`
	CanApprove     bool      `json:"can_approve" db:"can_approve"`
	CanReject      bool      `json:"can_reject" db:"can_reject"`
	CanRequestNext bool      `json:"can_request_next" db:"can_request_next"`
	CanEdit        bool      `json:"can_edit" db:"can_edit"`
	CanDelete      bool      `json:"can_delete" db:"can_delete"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// StepPermission is the per-workflow-step capability row for one subdivision.
// Regenerated together with its step when a workflow is edited.
type StepPermission struct {
	ID             uuid.UUID `json:"id" db:"id"`
	WorkflowStepID uuid.UUID `json:"workflow_step_id" db:"workflow_step_id"`
	SubdivisionID  uuid.UUID `json:"subdivision_id" db:"subdivision_id"`
	CanView        bool      `json:"can_view" db:"can_view"`
	CanApprove     bool      `json:"can_approve" db:"can_approve"`
	CanReject      bool      `json:"can_reject" db:"can_reject"`
	CanRequestNext bool      `json:"can_request_next" db:"can_request_next"`
}

// Capabilities is the effective capability set resolved for one (actor,
// submission) pair. Act capabilities come from step ownership; edit/delete
// and view compose ownership with the two permission tables.
type Capabilities struct {
	CanView        bool `json:"can_view"`
	CanApprove     bool `json:"can_approve"`
	CanReject      bool `json:"can_reject"`
	CanRequestNext bool `json:"can_request_next"`
	CanEdit        bool `json:"can_edit"`
	CanDelete      bool `json:"can_delete"`
}
