package stamping

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// StampJob is one queued request to render an approval stamp sheet for a
// finally approved submission. Jobs are decoupled from the approval
// transaction; a failed job never unwinds an approval.
type StampJob struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SubmissionID uuid.UUID  `json:"submission_id" db:"submission_id"`
	Status       JobStatus  `json:"status" db:"status"`
	Attempts     int        `json:"attempts" db:"attempts"`
	LastError    *string    `json:"last_error,omitempty" db:"last_error"`
	StampKey     *string    `json:"stamp_key,omitempty" db:"stamp_key"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// JobDetail is the stamp-sheet input joined from the submission and its
// final ledger row.
type JobDetail struct {
	SubmissionID uuid.UUID  `db:"submission_id"`
	Title        string     `db:"title"`
	DivisionName string     `db:"division_name"`
	ApprovedBy   *string    `db:"approved_by"`
	ApprovedAt   *time.Time `db:"approved_at"`
	ApprovalNote *string    `db:"approval_note"`
}
