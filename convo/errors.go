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

package convo

import (
	"fmt"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
)

// InvalidTenantError reports that create_conversation was called with a
// tenant id that fails the configured TenantValidator.
type InvalidTenantError struct {
	TenantID string
}

func (e *InvalidTenantError) Error() string {
	return fmt.Sprintf("invalid tenant %q", e.TenantID)
}

func (e *InvalidTenantError) Unwrap() error { return convotypes.ErrInvalidTenant }

// UnknownConversationError reports that conversationID has no backing
// Conversation record.
type UnknownConversationError struct {
	ConversationID string
}

func (e *UnknownConversationError) Error() string {
	return fmt.Sprintf("unknown conversation %q", e.ConversationID)
}

func (e *UnknownConversationError) Unwrap() error { return convotypes.ErrUnknownConversation }

// NotReceivableError reports that a conversation cannot accept a new
// inbound message in its current FSM state.
type NotReceivableError struct {
	ConversationID string
	State          fsm.State
}

func (e *NotReceivableError) Error() string {
	return fmt.Sprintf("conversation %q cannot receive messages in state %q", e.ConversationID, e.State)
}

func (e *NotReceivableError) Unwrap() error { return convotypes.ErrNotReceivable }

// PipelineTimeoutError reports that a turn exceeded its processing budget.
type PipelineTimeoutError struct {
	ConversationID string
}

func (e *PipelineTimeoutError) Error() string {
	return fmt.Sprintf("per-turn budget exceeded for conversation %q", e.ConversationID)
}

func (e *PipelineTimeoutError) Unwrap() error { return convotypes.ErrPipelineTimeout }

// InvalidTransitionError wraps a rejected FSM transition attempted through
// the facade (escalate/close), carrying the same from/to detail as
// fsm.TransitionError but under the facade's own sentinel for callers that
// only import convo.
type InvalidTransitionError struct {
	ConversationID string
	From, To       fsm.State
	Reason         string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("conversation %q: invalid transition from %q to %q: %s", e.ConversationID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("conversation %q: invalid transition from %q to %q", e.ConversationID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return convotypes.ErrInvalidTransition }
