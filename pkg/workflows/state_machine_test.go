package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitingStatus(t *testing.T) {
	status := WaitingStatus("Finance Division")
	assert.Equal(t, "waiting to Finance Division", status)
	assert.True(t, IsInFlight(status))
	assert.False(t, IsTerminal(status))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminal(StatusApproved))
	assert.True(t, IsTerminal(StatusRejected))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsInFlight(StatusApproved))
	assert.False(t, IsInFlight(StatusRejected))
	assert.True(t, IsInFlight(StatusPending))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, StatusPending, Normalize("waiting to Legal"))
	assert.Equal(t, StatusPending, Normalize(StatusPending))
	assert.Equal(t, StatusApproved, Normalize(StatusApproved))
	assert.Equal(t, StatusRejected, Normalize(StatusRejected))
}

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.CanTransition(StatusPending, StatusApproved))
	assert.True(t, sm.CanTransition(StatusPending, StatusRejected))
	assert.True(t, sm.CanTransition(StatusPending, "waiting to Directorate"))
	assert.True(t, sm.CanTransition("waiting to Finance", StatusApproved))

	// Terminal states admit nothing.
	assert.False(t, sm.CanTransition(StatusApproved, StatusPending))
	assert.False(t, sm.CanTransition(StatusApproved, StatusRejected))
	assert.False(t, sm.CanTransition(StatusRejected, StatusApproved))
	assert.False(t, sm.CanTransition(StatusRejected, "waiting to Finance"))

	assert.False(t, sm.CanTransition("garbage", StatusApproved))
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.ElementsMatch(t,
		[]string{StatusPending, StatusApproved, StatusRejected},
		sm.GetAllowedTransitions("waiting to Finance"))
	assert.Empty(t, sm.GetAllowedTransitions(StatusApproved))
	assert.Empty(t, sm.GetAllowedTransitions(StatusRejected))
	assert.Empty(t, sm.GetAllowedTransitions("garbage"))
}
