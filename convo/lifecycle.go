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
	"context"
	"fmt"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
)

// Escalate forces a conversation into the escalated state, e.g. because a
// human agent pulled it or a business rule fired outside the pipeline.
func (e *Engine) Escalate(ctx context.Context, conversationID, reason, escalatedBy, target string) error {
	conv, ok, err := e.store.FetchConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return &UnknownConversationError{ConversationID: conversationID}
	}

	tctx := fsm.TransitionContext{
		"escalation_reason": reason,
		"escalated_by":      escalatedBy,
	}
	if !e.machine.ValidateTransition(conv.State, fsm.StateEscalated, tctx) {
		return &InvalidTransitionError{ConversationID: conversationID, From: conv.State, To: fsm.StateEscalated, Reason: "escalation rejected by lifecycle rules"}
	}

	now := e.now()
	conv.PrevState = conv.State
	conv.State = fsm.StateEscalated
	conv.LastActivityAt = now
	conv.Escalation = &convotypes.EscalationRecord{
		Reason:      reason,
		EscalatedBy: escalatedBy,
		Target:      target,
		EscalatedAt: now,
	}
	if err := e.store.UpsertConversation(ctx, conv); err != nil {
		return fmt.Errorf("persist escalation: %w", err)
	}

	record := e.contextStore.GetOrCreate(conversationID, conv.TenantID, conv.UserID, string(conv.Channel))
	record.WithLock(func() {
		record.Session.RecordStateChange(fsm.StateEscalated, reason, map[string]any{"escalated_by": escalatedBy, "target": target}, now)
	})

	e.analytics.RecordStateTransition(conversationID, string(conv.PrevState), string(fsm.StateEscalated), reason)
	e.logger.Info("conversation escalated", "conversation_id", conversationID, "reason", reason, "target", target)
	return nil
}

// Close resolves a conversation: validates the transition into resolved,
// records the resolution detail, and finalizes its analytics.
func (e *Engine) Close(ctx context.Context, conversationID, resolutionType, resolvedBy, summary string, satisfaction *int, nps *int) error {
	conv, ok, err := e.store.FetchConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return &UnknownConversationError{ConversationID: conversationID}
	}

	tctx := fsm.TransitionContext{
		"resolution_type": resolutionType,
		"resolved_by":     resolvedBy,
	}
	if !e.machine.ValidateTransition(conv.State, fsm.StateResolved, tctx) {
		return &InvalidTransitionError{ConversationID: conversationID, From: conv.State, To: fsm.StateResolved, Reason: "close rejected by lifecycle rules"}
	}

	now := e.now()
	conv.PrevState = conv.State
	conv.State = fsm.StateResolved
	conv.LastActivityAt = now
	conv.Resolution = &convotypes.ResolutionRecord{
		ResolutionType: resolutionType,
		ResolvedBy:     resolvedBy,
		Satisfaction:   satisfaction,
		NPS:            nps,
		Summary:        summary,
		ResolvedAt:     now,
	}
	if err := e.store.UpsertConversation(ctx, conv); err != nil {
		return fmt.Errorf("persist resolution: %w", err)
	}

	record := e.contextStore.GetOrCreate(conversationID, conv.TenantID, conv.UserID, string(conv.Channel))
	record.WithLock(func() {
		record.Session.RecordStateChange(fsm.StateResolved, "closed", map[string]any{"resolution_type": resolutionType}, now)
	})

	e.analytics.RecordStateTransition(conversationID, string(conv.PrevState), string(fsm.StateResolved), "closed")

	var satisfactionScore *float64
	if satisfaction != nil {
		v := float64(*satisfaction)
		satisfactionScore = &v
	}
	e.analytics.RecordResolution(conversationID, true, resolutionType, satisfactionScore, nps)

	if _, ok := e.analytics.FinalizeConversation(conversationID); ok {
		e.contextStore.Drop(conversationID)
	}

	e.logger.Info("conversation closed", "conversation_id", conversationID, "resolution_type", resolutionType)
	return nil
}
