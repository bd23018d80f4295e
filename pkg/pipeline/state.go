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

package pipeline

import (
	"github.com/nordeim/convoengine/pkg/adaptation"
	"github.com/nordeim/convoengine/pkg/fsm"
)

// shouldEscalate combines the dispatched intent handler's verdict and the
// emotion-adaptation recommendation into one escalation decision, in that
// priority order. The turn-level confidence does not affect the decision.
func (p *Pipeline) shouldEscalate(confidence float64, intentResult *adaptation.IntentResult, tone *adaptation.ToneAdaptation) (bool, string) {
	if intentResult != nil && intentResult.RequiresEscalation {
		return true, intentResult.EscalationReason
	}
	if tone != nil && tone.EscalationRecommended {
		return true, tone.EscalationReason
	}
	return false, ""
}

// determineNextState mirrors ConversationManager._determine_next_state:
// escalation wins outright, then low overall confidence sends the
// conversation back to waiting-for-user, then the current-state-specific
// defaults (processing needs a confident intent and a generated response
// to advance to active), falling back to active.
func (p *Pipeline) determineNextState(current fsm.State, confidence, intentConfidence float64, requiresEscalation, hasResponse bool) fsm.State {
	if requiresEscalation {
		return fsm.StateEscalated
	}

	threshold := p.cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	if confidence < threshold {
		return fsm.StateWaitingForUser
	}

	if current == fsm.StateProcessing {
		if intentConfidence < 0.8 {
			return fsm.StateWaitingForUser
		}
		if hasResponse && confidence >= 0.7 {
			return fsm.StateActive
		}
		return fsm.StateWaitingForUser
	}

	return fsm.StateActive
}
