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

// Package fsm implements the conversation lifecycle state machine: the
// transition adjacency matrix, per-state timeout/auto-transition
// configuration, and context-validated transitions for escalation,
// resolution, and transfer.
package fsm

import "time"

// State is a conversation lifecycle state.
type State string

const (
	StateInitialized      State = "initialized"
	StateActive           State = "active"
	StateWaitingForUser   State = "waiting_for_user"
	StateWaitingForAgent  State = "waiting_for_agent"
	StateProcessing       State = "processing"
	StateEscalated        State = "escalated"
	StateTransferred      State = "transferred"
	StateResolved         State = "resolved"
	StateAbandoned        State = "abandoned"
	StateArchived         State = "archived"
)

// config describes per-state timeout and auto-transition behavior.
type config struct {
	timeout          time.Duration
	hasTimeout       bool
	autoTransitionTo State
	hasAutoTransition bool
	description      string
}

// transitionRules is the adjacency matrix: for each state, the set of
// states that may be transitioned to directly.
var transitionRules = map[State]map[State]struct{}{
	StateInitialized: set(StateActive, StateProcessing, StateAbandoned),
	StateActive: set(
		StateProcessing, StateWaitingForUser, StateWaitingForAgent,
		StateEscalated, StateResolved, StateAbandoned,
	),
	StateProcessing: set(
		StateActive, StateWaitingForUser, StateWaitingForAgent,
		StateEscalated, StateResolved,
	),
	StateWaitingForUser: set(
		StateActive, StateProcessing, StateEscalated, StateAbandoned,
	),
	StateWaitingForAgent: set(
		StateActive, StateProcessing, StateEscalated, StateResolved,
	),
	StateEscalated:   set(StateTransferred, StateResolved),
	StateTransferred: set(StateActive, StateResolved),
	StateResolved:    set(StateArchived),
	StateAbandoned:   set(StateArchived),
	StateArchived:    {},
}

var stateConfig = map[State]config{
	StateInitialized: {
		timeout: 300 * time.Second, hasTimeout: true,
		autoTransitionTo: StateAbandoned, hasAutoTransition: true,
		description: "Conversation created but not yet started",
	},
	StateActive: {
		timeout: 1800 * time.Second, hasTimeout: true,
		autoTransitionTo: StateAbandoned, hasAutoTransition: true,
		description: "Active conversation with ongoing interaction",
	},
	StateProcessing: {
		timeout: 60 * time.Second, hasTimeout: true,
		autoTransitionTo: StateEscalated, hasAutoTransition: true,
		description: "AI is processing the current message",
	},
	StateWaitingForUser: {
		timeout: 600 * time.Second, hasTimeout: true,
		autoTransitionTo: StateAbandoned, hasAutoTransition: true,
		description: "Waiting for user input",
	},
	StateWaitingForAgent: {
		timeout: 1800 * time.Second, hasTimeout: true,
		autoTransitionTo: StateEscalated, hasAutoTransition: true,
		description: "Waiting for human agent",
	},
	StateEscalated: {
		description: "Conversation escalated to human agent",
	},
	StateTransferred: {
		timeout: 300 * time.Second, hasTimeout: true,
		autoTransitionTo: StateEscalated, hasAutoTransition: true,
		description: "Conversation transferred to another agent or queue",
	},
	StateResolved: {
		timeout: 86400 * time.Second, hasTimeout: true,
		autoTransitionTo: StateArchived, hasAutoTransition: true,
		description: "Conversation successfully resolved",
	},
	StateAbandoned: {
		timeout: 3600 * time.Second, hasTimeout: true,
		autoTransitionTo: StateArchived, hasAutoTransition: true,
		description: "Conversation abandoned due to inactivity",
	},
	StateArchived: {
		description: "Archived conversation, read-only",
	},
}

var activeStates = set(
	StateInitialized, StateActive, StateProcessing,
	StateWaitingForUser, StateWaitingForAgent,
)

var processingStates = set(StateInitialized, StateActive, StateProcessing)

func set(states ...State) map[State]struct{} {
	m := make(map[State]struct{}, len(states))
	for _, s := range states {
		m[s] = struct{}{}
	}
	return m
}
