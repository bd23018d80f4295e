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

// Package convotypes holds the data-model types shared across the
// conversation orchestrator: conversations, messages, model descriptors,
// and CRM sync records. Persistence is delegated to an external
// collaborator; this package only defines the shapes that cross that
// boundary.
package convotypes

import (
	"time"

	"github.com/nordeim/convoengine/pkg/fsm"
)

// Channel is a closed set of supported inbound/outbound channels.
type Channel string

const (
	ChannelWebChat       Channel = "web_chat"
	ChannelMobileIOS     Channel = "mobile_ios"
	ChannelMobileAndroid Channel = "mobile_android"
	ChannelEmail         Channel = "email"
	ChannelSlack         Channel = "slack"
	ChannelTeams         Channel = "teams"
	ChannelSMS           Channel = "sms"
	ChannelAPI           Channel = "api"
)

// SenderClass identifies who authored a Message.
type SenderClass string

const (
	SenderEndUser    SenderClass = "end_user"
	SenderAI         SenderClass = "ai_agent"
	SenderHumanAgent SenderClass = "human_agent"
	SenderSystem     SenderClass = "system"
)

// ResolutionRecord describes how a conversation was closed.
type ResolutionRecord struct {
	ResolutionType string
	ResolvedBy     string
	Satisfaction   *int // 1-5, optional
	NPS            *int // 0-10, optional
	Summary        string
	ResolvedAt     time.Time
}

// EscalationRecord describes why/when a conversation was escalated.
type EscalationRecord struct {
	Reason      string
	EscalatedBy string
	Target      string
	EscalatedAt time.Time
}

// Conversation is the aggregate root: an opaque id, tenant/user/channel
// identity, current and previous FSM state, timestamps, message counters,
// running aggregates, and the (externally stored) layered Context.
type Conversation struct {
	ID        string
	TenantID  string
	UserID    string // empty for anonymous
	Channel   Channel
	State     fsm.State
	PrevState fsm.State

	CreatedAt      time.Time
	LastActivityAt time.Time

	MessageCountBySender map[SenderClass]int

	AggregateConfidence float64
	AggregateSentiment  float64
	AggregateEmotion    string

	Resolution *ResolutionRecord
	Escalation *EscalationRecord
	SLADeadline *time.Time
}

// NewConversation creates a fresh conversation in the initialized state.
func NewConversation(id, tenantID, userID string, channel Channel, now time.Time) *Conversation {
	return &Conversation{
		ID:                   id,
		TenantID:             tenantID,
		UserID:               userID,
		Channel:              channel,
		State:                fsm.StateInitialized,
		PrevState:            fsm.StateInitialized,
		CreatedAt:            now,
		LastActivityAt:       now,
		MessageCountBySender: make(map[SenderClass]int),
	}
}

// IsTerminal reports whether the conversation has reached archived state.
func (c *Conversation) IsTerminal() bool {
	return c.State == fsm.StateArchived
}

// AnnotatedMessage carries the per-turn AI annotations attached to a
// Message: intent, confidence, sentiment, emotion, entities, language,
// model used, token counts, and processing time.
type AnnotatedMessage struct {
	Intent           string
	IntentConfidence float64
	SentimentLabel   string
	SentimentScore   float64
	Emotion          string
	EmotionIntensity float64
	Entities         []Entity
	Language         string
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration
}

// Entity is a single named-entity extraction result.
type Entity struct {
	Type  string
	Value string
	Start int
	End   int
}

// Message is immutable after insertion except for soft-delete/edit
// timestamps.
type Message struct {
	ID             string
	ConversationID string
	Sender         SenderClass
	Content        string
	ContentType    string
	CreatedAt      time.Time
	Annotations    AnnotatedMessage

	DeletedAt *time.Time
	EditedAt  *time.Time
}
