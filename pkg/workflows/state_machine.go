package workflows

import "strings"

// Submission status values. "waiting to <Division>" is a display variant of
// the in-flight state; control flow only cares about in-flight vs terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	waitingPrefix = "waiting to "
)

// Ledger step statuses. Each ledger row transitions exactly once away from
// pending and is never re-opened.
const (
	StepPending   = "pending"
	StepApproved  = "approved"
	StepRejected  = "rejected"
	StepForwarded = "forwarded"
)

// WaitingStatus builds the display status for a submission parked at a
// division's step.
func WaitingStatus(divisionName string) string {
	return waitingPrefix + divisionName
}

// IsTerminal reports whether a submission status admits no further actions.
func IsTerminal(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// IsInFlight reports whether a submission is still moving through its steps.
func IsInFlight(status string) bool {
	return status == StatusPending || strings.HasPrefix(status, waitingPrefix)
}

// StateMachine enforces submission status transitions.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions.
// Waiting statuses are normalized to StatusPending before lookup.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			StatusPending:  {StatusPending, StatusApproved, StatusRejected},
			StatusApproved: {},
			StatusRejected: {},
		},
	}
}

// Normalize collapses waiting-to display statuses onto the pending state.
func Normalize(status string) string {
	if strings.HasPrefix(status, waitingPrefix) {
		return StatusPending
	}
	return status
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[Normalize(from)]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == Normalize(to) {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[Normalize(from)]
	if !exists {
		return []string{}
	}
	return allowed
}
