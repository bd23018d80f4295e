package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_CanTransition(t *testing.T) {
	m := New(nil)

	cases := []struct {
		from, to State
		want     bool
	}{
		{StateInitialized, StateActive, true},
		{StateInitialized, StateResolved, false},
		{StateActive, StateEscalated, true},
		{StateEscalated, StateTransferred, true},
		{StateEscalated, StateActive, false},
		{StateArchived, StateActive, false},
		{StateResolved, StateArchived, true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, m.CanTransition(c.from, c.to), "from=%s to=%s", c.from, c.to)
	}
}

func TestMachine_ValidateTransition_EscalationRequiresFields(t *testing.T) {
	m := New(nil)

	ok := m.ValidateTransition(StateActive, StateEscalated, TransitionContext{})
	assert.False(t, ok)

	ok = m.ValidateTransition(StateActive, StateEscalated, TransitionContext{
		"escalation_reason": "angry customer",
		"escalated_by":      "pipeline",
	})
	assert.True(t, ok)
}

func TestMachine_ValidateTransition_ResolutionRequiresFields(t *testing.T) {
	m := New(nil)

	ok := m.ValidateTransition(StateActive, StateResolved, TransitionContext{
		"resolution_type": "self_service",
	})
	assert.False(t, ok, "missing resolved_by should fail")

	ok = m.ValidateTransition(StateActive, StateResolved, TransitionContext{
		"resolution_type": "self_service",
		"resolved_by":     "agent-1",
	})
	assert.True(t, ok)
}

func TestMachine_ValidateTransition_TransferRequiresFields(t *testing.T) {
	m := New(nil)
	ok := m.ValidateTransition(StateEscalated, StateTransferred, TransitionContext{
		"transfer_reason": "billing specialist needed",
		"transferred_to":  "queue:billing",
	})
	assert.True(t, ok)

	ok = m.ValidateTransition(StateEscalated, StateTransferred, TransitionContext{
		"transfer_reason": "",
		"transferred_to":  "queue:billing",
	})
	assert.False(t, ok)
}

func TestMachine_StateTimeout(t *testing.T) {
	m := New(nil)

	timeout, ok := m.StateTimeout(StateProcessing)
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, timeout)

	_, ok = m.StateTimeout(StateEscalated)
	assert.False(t, ok)
}

func TestMachine_AutoTransitionState(t *testing.T) {
	m := New(nil)

	next, ok := m.AutoTransitionState(StateWaitingForUser)
	require.True(t, ok)
	assert.Equal(t, StateAbandoned, next)

	_, ok = m.AutoTransitionState(StateArchived)
	assert.False(t, ok)
}

func TestMachine_IsTerminalAndActive(t *testing.T) {
	m := New(nil)

	assert.True(t, m.IsTerminalState(StateArchived))
	assert.False(t, m.IsTerminalState(StateResolved))

	assert.True(t, m.IsActiveState(StateProcessing))
	assert.False(t, m.IsActiveState(StateEscalated))

	assert.True(t, m.CanReceiveMessages(StateActive))
	assert.False(t, m.CanReceiveMessages(StateArchived))
}

func TestMachine_ValidateLifecycle(t *testing.T) {
	m := New(nil)

	good := []State{StateInitialized, StateActive, StateEscalated, StateResolved, StateArchived}
	assert.True(t, m.ValidateLifecycle(good))

	bad := []State{StateActive, StateResolved}
	assert.False(t, m.ValidateLifecycle(bad))

	badJump := []State{StateInitialized, StateArchived}
	assert.False(t, m.ValidateLifecycle(badJump))
}

func TestMachine_CreateTransitionEvent(t *testing.T) {
	m := New(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ev := m.CreateTransitionEvent(StateActive, StateResolved, nil, now)
	assert.True(t, ev.ValidTransition)
	assert.Equal(t, StateActive, ev.FromState)
	assert.Equal(t, StateResolved, ev.ToState)
	assert.Equal(t, now, ev.TransitionTime)

	evBad := m.CreateTransitionEvent(StateArchived, StateActive, nil, now)
	assert.False(t, evBad.ValidTransition)
}

func TestTransitionError(t *testing.T) {
	err := NewTransitionError(StateArchived, StateActive, "terminal state")
	assert.True(t, IsInvalidTransition(err))
	assert.Contains(t, err.Error(), "archived")
}
