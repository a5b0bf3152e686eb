package submissions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Submission is one document moving through its division-owned approval
// route. division_id mirrors the active ledger row's division so inbox
// queries stay a single-table filter; the state machine is its only writer
// and every authorization guard reads the ledger row instead.
type Submission struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	CreatorID    uuid.UUID  `json:"creator_id" db:"creator_id"`
	DivisionID   uuid.UUID  `json:"division_id" db:"division_id"`
	WorkflowID   uuid.UUID  `json:"workflow_id" db:"workflow_id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	FileBucket   *string    `json:"file_bucket,omitempty" db:"file_bucket"`
	FileKey      *string    `json:"file_key,omitempty" db:"file_key"`
	Status       string     `json:"status" db:"status"`
	CurrentStep  int        `json:"current_step" db:"current_step"`
	WaitingFor   *string    `json:"waiting_for,omitempty" db:"waiting_for"`
	ApprovedBy   *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovalNote *string    `json:"approval_note,omitempty" db:"approval_note"`

	// FormPayload carries dynamic-field answers and optional tabular rows.
	// The engine never inspects it; the document-type schema service owns
	// its validation.
	FormPayload json.RawMessage `json:"form_payload,omitempty" db:"form_payload"`

	VerificationToken *uuid.UUID `json:"verification_token,omitempty" db:"verification_token"`

	// RowVersion guards against lost updates when two actors race on the
	// same step. Every mutating transition bumps it.
	RowVersion int       `json:"row_version" db:"row_version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	Steps []SubmissionStep `json:"steps,omitempty" db:"-"`
}

// SubmissionStep is one ledger row: a materialized copy of a workflow step
// definition frozen at submission creation. The ledger is the authoritative
// execution record; later workflow edits never touch it.
type SubmissionStep struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SubmissionID   uuid.UUID  `json:"submission_id" db:"submission_id"`
	WorkflowStepID uuid.UUID  `json:"workflow_step_id" db:"workflow_step_id"`
	StepOrder      int        `json:"step_order" db:"step_order"`
	DivisionID     uuid.UUID  `json:"division_id" db:"division_id"`
	DivisionName   string     `json:"division_name" db:"division_name"`
	RoleLabel      string     `json:"role_label" db:"role_label"`
	Status         string     `json:"status" db:"status"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`
	ActedAt        *time.Time `json:"acted_at,omitempty" db:"acted_at"`
	Note           *string    `json:"note,omitempty" db:"note"`
}
