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

	"github.com/nordeim/convoengine/pkg/analytics"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/pipeline"
)

// TurnResult is what post_user_message hands back to the caller: the
// reply to show the user, the annotations the pipeline attached to it,
// and the conversation's state after the turn.
type TurnResult struct {
	MessageID    string
	ResponseText string
	Annotations  convotypes.AnnotatedMessage
	State        fsm.State
	Escalated    bool
}

// PostUserMessage runs one conversational turn: it loads the conversation
// and its context, rejects the turn if the current state cannot receive
// messages, otherwise dispatches to the pipeline, persists both the
// inbound and outbound messages, folds the pipeline's findings back into
// the context layers, advances the FSM, and records analytics.
//
// A second call for the same conversationID while one is already running
// fails fast with convotypes.ErrConversationBusy rather than queueing
// behind it.
func (e *Engine) PostUserMessage(ctx context.Context, conversationID, content string) (TurnResult, error) {
	release, busy := e.tryLockConversation(conversationID)
	if busy {
		return TurnResult{}, fmt.Errorf("conversation %q: %w", conversationID, convotypes.ErrConversationBusy)
	}
	defer release()

	conv, ok, err := e.store.FetchConversation(ctx, conversationID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return TurnResult{}, &UnknownConversationError{ConversationID: conversationID}
	}
	if !e.machine.CanReceiveMessages(conv.State) {
		return TurnResult{}, &NotReceivableError{ConversationID: conversationID, State: conv.State}
	}

	record := e.contextStore.GetOrCreate(conversationID, conv.TenantID, conv.UserID, string(conv.Channel))

	// Gate the turn into processing before dispatch (spec §4.5 step 1):
	// the pipeline's determineNextState branches on StateProcessing, so
	// the conversation must already be there when Process runs.
	preTurnState := conv.State
	if e.machine.ValidateTransition(preTurnState, fsm.StateProcessing, nil) {
		conv.PrevState = preTurnState
		conv.State = fsm.StateProcessing
		record.WithLock(func() {
			record.Session.RecordStateChange(fsm.StateProcessing, "message received", nil, e.now())
		})
		e.analytics.RecordStateTransition(conversationID, string(preTurnState), string(fsm.StateProcessing), "message received")
	}

	now := e.now()
	userMsgID := e.newID()
	userMsg := &convotypes.Message{
		ID:             userMsgID,
		ConversationID: conversationID,
		Sender:         convotypes.SenderEndUser,
		Content:        content,
		ContentType:    "text",
		CreatedAt:      now,
	}
	if err := e.store.UpsertMessage(ctx, userMsg); err != nil {
		return TurnResult{}, fmt.Errorf("persist inbound message: %w", err)
	}

	var previousIntents []string
	var sentimentTrend string
	record.WithLock(func() {
		record.Session.MessageCount++
		record.Session.UserMessageCount++
		record.Session.UpdateActivity(now)
		if len(record.AI.IntentHistory) > 0 {
			for _, ir := range record.AI.IntentHistory {
				previousIntents = append(previousIntents, ir.Intent)
			}
		}
		sentimentTrend = record.User.SentimentTrend().Trend
	})

	in := pipeline.TurnInput{
		ConversationID:  conversationID,
		TenantID:        conv.TenantID,
		UserID:          conv.UserID,
		Channel:         string(conv.Channel),
		Content:         content,
		CurrentState:    conv.State, // now fsm.StateProcessing, per the gate above
		PreviousIntents: previousIntents,
		SentimentTrend:  sentimentTrend,
	}

	out, procErr := e.pipeline.Process(ctx, in)
	if procErr != nil {
		return TurnResult{}, fmt.Errorf("process turn: %w", procErr)
	}

	// A degraded turn (budget exhausted or every generation provider
	// failed) still produces a response the user actually saw and a
	// conversation that must park somewhere: it is persisted exactly
	// like a healthy turn, but the caller additionally gets back a
	// typed error identifying the degradation, per spec §7's
	// propagation policy for AllProvidersFailed/PipelineTimeout.
	var degraded error
	if out.TimedOut {
		degraded = &PipelineTimeoutError{ConversationID: conversationID}
		if out.NextState == "" || out.NextState == in.CurrentState {
			out.NextState = fsm.StateWaitingForUser
		}
	} else if out.GenerationFailed {
		degraded = &convotypes.AllProvidersFailedError{Capability: string(convotypes.CapabilityChatCompletion)}
		if !out.RequiresEscalation {
			out.NextState = fsm.StateWaitingForUser
		}
	}

	aiMsgID := e.newID()
	aiMsg := &convotypes.Message{
		ID:             aiMsgID,
		ConversationID: conversationID,
		Sender:         convotypes.SenderAI,
		Content:        out.ResponseText,
		ContentType:    "text",
		CreatedAt:      e.now(),
		Annotations:    out.Annotations,
	}
	if err := e.store.UpsertMessage(ctx, aiMsg); err != nil {
		return TurnResult{}, fmt.Errorf("persist outbound message: %w", err)
	}

	record.WithLock(func() {
		ts := e.now()
		if out.Annotations.Intent != "" {
			record.AI.RecordIntent(out.Annotations.Intent, out.Annotations.IntentConfidence, nil, ts)
		}
		if out.Annotations.SentimentLabel != "" {
			record.AI.RecordSentiment(out.Annotations.SentimentLabel, out.Annotations.SentimentScore, out.Confidence, ts)
			record.User.AddSentimentRecord(out.Annotations.SentimentLabel, out.Annotations.SentimentScore, out.Confidence, ts)
		}
		if out.Annotations.Emotion != "" {
			record.AI.RecordEmotion(out.Annotations.Emotion, out.Annotations.EmotionIntensity, out.Confidence, ts)
			record.User.AddEmotionRecord(out.Annotations.Emotion, out.Annotations.EmotionIntensity, out.Confidence, ts)
		}
		record.Session.MessageCount++
		record.Session.AIMessageCount++
		record.Session.UpdateActivity(ts)
		record.UpdatedAt = ts
	})

	fromState := conv.State
	if out.NextState != "" && out.NextState != fromState {
		tctx := fsm.TransitionContext{}
		if out.NextState == fsm.StateEscalated {
			tctx["escalation_reason"] = firstNonEmpty(out.EscalationReason, "pipeline-directed escalation")
			tctx["escalated_by"] = "pipeline"
		}
		if e.machine.ValidateTransition(fromState, out.NextState, tctx) {
			conv.PrevState = fromState
			conv.State = out.NextState
			record.WithLock(func() {
				record.Session.RecordStateChange(out.NextState, "pipeline turn outcome", nil, e.now())
			})
			e.analytics.RecordStateTransition(conversationID, string(fromState), string(out.NextState), "pipeline turn outcome")
		}
	}
	conv.LastActivityAt = e.now()
	conv.MessageCountBySender[convotypes.SenderEndUser]++
	conv.MessageCountBySender[convotypes.SenderAI]++
	conv.AggregateConfidence = out.Confidence
	conv.AggregateEmotion = out.Annotations.Emotion

	if err := e.store.UpsertConversation(ctx, conv); err != nil {
		return TurnResult{}, fmt.Errorf("persist conversation state: %w", err)
	}

	e.analytics.RecordMessageProcessed(conversationID, userMsgID, "user", len(content), 0, analyticsEventFrom(out))
	e.analytics.RecordMessageProcessed(conversationID, aiMsgID, string(convotypes.SenderAI), len(out.ResponseText), 0, analyticsEventFrom(out))

	return TurnResult{
		MessageID:    aiMsgID,
		ResponseText: out.ResponseText,
		Annotations:  out.Annotations,
		State:        conv.State,
		Escalated:    out.RequiresEscalation,
	}, degraded
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// analyticsEventFrom projects a pipeline turn outcome into the analytics
// collector's per-message event shape.
func analyticsEventFrom(out pipeline.TurnOutput) analytics.MessageEvent {
	return analytics.MessageEvent{
		Intent:            out.Annotations.Intent,
		IntentConfidence:  out.Annotations.IntentConfidence,
		Sentiment:         out.Annotations.SentimentLabel,
		SentimentScore:    out.Annotations.SentimentScore,
		HasSentimentScore: out.Annotations.SentimentLabel != "",
		Emotion:           out.Annotations.Emotion,
		EmotionIntensity:  out.Annotations.EmotionIntensity,
		HasEmotionIntensity: out.Annotations.Emotion != "",
		EntitiesCount:     len(out.Annotations.Entities),
		Language:          out.Annotations.Language,
		ModelUsed:         out.Annotations.ModelUsed,
		Confidence:        out.Confidence,
	}
}
