package reports

import (
	"time"

	"github.com/google/uuid"
)

// Period bounds a report query. Zero values mean unbounded.
type Period struct {
	From time.Time
	To   time.Time
}

// DivisionSummary aggregates submission throughput for one division over a
// period. Turnaround measures creation to final decision.
type DivisionSummary struct {
	DivisionID         uuid.UUID `json:"division_id" db:"division_id"`
	DivisionName       string    `json:"division_name" db:"division_name"`
	Created            int       `json:"created" db:"created"`
	Approved           int       `json:"approved" db:"approved"`
	Rejected           int       `json:"rejected" db:"rejected"`
	InFlight           int       `json:"in_flight" db:"in_flight"`
	AvgTurnaroundHours *float64  `json:"avg_turnaround_hours,omitempty" db:"avg_turnaround_hours"`
}

// SubmissionRow is one export line: the submission with its current position.
type SubmissionRow struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Status       string     `json:"status" db:"status"`
	CurrentStep  int        `json:"current_step" db:"current_step"`
	CreatorName  string     `json:"creator_name" db:"creator_name"`
	DivisionName string     `json:"division_name" db:"division_name"`
	WorkflowName string     `json:"workflow_name" db:"workflow_name"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
}
