// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsm

import (
	"log/slog"
	"time"
)

// TransitionContext carries the metadata a destination state requires for
// validation (escalation_reason/escalated_by, resolution_type/resolved_by,
// transfer_reason/transferred_to).
type TransitionContext map[string]any

// TransitionEvent is a standardized record of an attempted transition, used
// for logging and analytics.
type TransitionEvent struct {
	FromState      State
	ToState        State
	TransitionTime time.Time
	ValidTransition bool
	Context        TransitionContext
}

// Machine is the conversation lifecycle finite state machine. It holds no
// per-conversation state itself; callers pass the current state in.
type Machine struct {
	logger *slog.Logger
}

// New creates a Machine. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{logger: logger}
}

// CanTransition reports whether to is directly reachable from from.
func (m *Machine) CanTransition(from, to State) bool {
	valid, ok := transitionRules[from]
	if !ok {
		return false
	}
	_, allowed := valid[to]
	return allowed
}

// ValidTransitions returns the states directly reachable from current.
func (m *Machine) ValidTransitions(current State) []State {
	valid := transitionRules[current]
	out := make([]State, 0, len(valid))
	for s := range valid {
		out = append(out, s)
	}
	return out
}

// ValidateTransition checks adjacency and, when ctx is non-nil, the
// destination state's required metadata fields.
func (m *Machine) ValidateTransition(from, to State, ctx TransitionContext) bool {
	if !m.CanTransition(from, to) {
		m.logger.Warn("invalid state transition attempted", "from", from, "to", to)
		return false
	}
	if ctx != nil {
		return m.validateTransitionContext(to, ctx)
	}
	return true
}

func (m *Machine) validateTransitionContext(to State, ctx TransitionContext) bool {
	var required []string
	switch to {
	case StateEscalated:
		required = []string{"escalation_reason", "escalated_by"}
	case StateResolved:
		required = []string{"resolution_type", "resolved_by"}
	case StateTransferred:
		required = []string{"transfer_reason", "transferred_to"}
	default:
		return true
	}
	for _, field := range required {
		v, ok := ctx[field]
		if !ok || isEmptyValue(v) {
			m.logger.Error("missing required field for transition", "to_state", to, "field", field)
			return false
		}
	}
	return true
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// StateTimeout returns the inactivity timeout for state, and whether one is
// configured (the escalated/archived terminal-ish states have none).
func (m *Machine) StateTimeout(state State) (time.Duration, bool) {
	c, ok := stateConfig[state]
	if !ok {
		return 0, false
	}
	return c.timeout, c.hasTimeout
}

// AutoTransitionState returns the state a timed-out conversation in state
// should move to, and whether an auto-transition is configured.
func (m *Machine) AutoTransitionState(state State) (State, bool) {
	c, ok := stateConfig[state]
	if !ok {
		return "", false
	}
	return c.autoTransitionTo, c.hasAutoTransition
}

// StateDescription returns a human-readable description of state.
func (m *Machine) StateDescription(state State) string {
	if c, ok := stateConfig[state]; ok && c.description != "" {
		return c.description
	}
	return "conversation is " + string(state)
}

// IsTerminalState reports whether state allows no further transitions.
func (m *Machine) IsTerminalState(state State) bool {
	return state == StateArchived
}

// IsActiveState reports whether a conversation in state is still live
// (may yet receive messages, subject to IsTerminalState).
func (m *Machine) IsActiveState(state State) bool {
	_, ok := activeStates[state]
	return ok
}

// RequiresProcessing reports whether state calls for AI processing.
func (m *Machine) RequiresProcessing(state State) bool {
	_, ok := processingStates[state]
	return ok
}

// CanReceiveMessages reports whether a conversation in state can accept a
// new inbound message.
func (m *Machine) CanReceiveMessages(state State) bool {
	return m.IsActiveState(state) && !m.IsTerminalState(state)
}

// StateMetrics is the metrics-facing view of a state's configuration.
type StateMetrics struct {
	State             State
	IsActive          bool
	IsTerminal        bool
	RequiresProcessing bool
	Timeout           time.Duration
	HasTimeout        bool
	AutoTransitionTo  State
	HasAutoTransition bool
	Description       string
}

// StateMetricsFor builds the metrics view for state.
func (m *Machine) StateMetricsFor(state State) StateMetrics {
	c := stateConfig[state]
	return StateMetrics{
		State:             state,
		IsActive:          m.IsActiveState(state),
		IsTerminal:        m.IsTerminalState(state),
		RequiresProcessing: m.RequiresProcessing(state),
		Timeout:           c.timeout,
		HasTimeout:        c.hasTimeout,
		AutoTransitionTo:  c.autoTransitionTo,
		HasAutoTransition: c.hasAutoTransition,
		Description:       m.StateDescription(state),
	}
}

// CreateTransitionEvent builds a standardized transition event for logging
// and analytics, regardless of whether the transition is actually valid.
func (m *Machine) CreateTransitionEvent(from, to State, ctx TransitionContext, now time.Time) TransitionEvent {
	return TransitionEvent{
		FromState:       from,
		ToState:         to,
		TransitionTime:  now,
		ValidTransition: m.CanTransition(from, to),
		Context:         ctx,
	}
}

// ValidateLifecycle checks that a full state history is a valid walk of the
// transition graph, starting at StateInitialized.
func (m *Machine) ValidateLifecycle(history []State) bool {
	if len(history) == 0 {
		return true
	}
	if history[0] != StateInitialized {
		m.logger.Error("invalid initial state", "expected", StateInitialized, "actual", history[0])
		return false
	}
	for i := 0; i < len(history)-1; i++ {
		if !m.CanTransition(history[i], history[i+1]) {
			m.logger.Error("invalid transition in history", "position", i, "from", history[i], "to", history[i+1])
			return false
		}
	}
	return true
}
