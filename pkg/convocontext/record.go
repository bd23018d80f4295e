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

package convocontext

import (
	"sync"
	"time"

	"github.com/nordeim/convoengine/pkg/fsm"
)

// contextSchemaVersion is carried in Snapshot so deserialization can be
// tolerant of fields added after a snapshot was written to storage.
const contextSchemaVersion = 1

// Record is the four-layer context for one conversation. All access goes
// through its own mutex: a Record has exactly one logical writer at a
// time, matching the orchestrator's per-conversation exclusivity rule.
type Record struct {
	mu sync.Mutex

	ConversationID string
	TenantID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	User     *UserLayer
	Session  *SessionLayer
	AI       *AILayer
	Business *BusinessLayer
}

// NewRecord creates a fresh four-layer context for a new conversation.
func NewRecord(conversationID, tenantID, userID, channel string, now time.Time) *Record {
	session := newSessionLayer()
	session.ConversationID = conversationID
	session.Channel = channel
	session.StartTime = now
	session.LastActivityTime = now

	user := newUserLayer()
	user.UserID = userID
	user.OrganizationID = tenantID

	return &Record{
		ConversationID: conversationID,
		TenantID:       tenantID,
		CreatedAt:      now,
		UpdatedAt:      now,
		User:           user,
		Session:        session,
		AI:             newAILayer(),
		Business:       newBusinessLayer(),
	}
}

// WithLock runs fn with the record's exclusive writer lock held. All
// mutation of a Record's layers should go through this.
func (r *Record) WithLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Touch stamps UpdatedAt and the session layer's LastActivityTime.
func (r *Record) Touch(now time.Time) {
	r.WithLock(func() {
		r.UpdatedAt = now
		r.Session.UpdateActivity(now)
	})
}

// IsExpired reports whether the record has been idle longer than ttl.
func (r *Record) IsExpired(ttl time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Sub(r.UpdatedAt) > ttl
}

// Snapshot is the serializable projection of a Record, safe to persist
// externally (§6's persisted-state-layout delegation point) or hand to a
// caller without exposing the live mutex.
type Snapshot struct {
	SchemaVersion  int
	ConversationID string
	TenantID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	User     UserLayer
	Session  SessionLayer
	AI       AILayer
	Business BusinessLayer
}

// Serialize produces a point-in-time, deep-enough copy suitable for
// external persistence.
func (r *Record) Serialize() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		SchemaVersion:  contextSchemaVersion,
		ConversationID: r.ConversationID,
		TenantID:       r.TenantID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		User:           *r.User,
		Session:        *r.Session,
		AI:             *r.AI,
		Business:       *r.Business,
	}
}

// Restore rebuilds a Record from a Snapshot. Missing/zero fields in older
// snapshot versions fall back to the same defaults NewRecord would set,
// so a Snapshot written before a field existed still restores cleanly.
func Restore(snap Snapshot) *Record {
	user := snap.User
	if user.Preferences == nil {
		user.Preferences = make(map[string]any)
	}
	if user.Profile == nil {
		user.Profile = make(map[string]any)
	}
	if user.LanguagePreference == "" {
		user.LanguagePreference = "en"
	}
	if user.CustomerTier == "" {
		user.CustomerTier = "standard"
	}

	session := snap.Session
	if session.CurrentState == "" {
		session.CurrentState = fsm.StateInitialized
	}
	if session.ContextVariables == nil {
		session.ContextVariables = make(map[string]any)
	}
	if session.TemporaryData == nil {
		session.TemporaryData = make(map[string]any)
	}

	ai := snap.AI
	if ai.TokenUsage == nil {
		ai.TokenUsage = make(map[string]int)
	}
	if ai.ConfidenceThreshold == 0 {
		ai.ConfidenceThreshold = 0.7
	}

	return &Record{
		ConversationID: snap.ConversationID,
		TenantID:       snap.TenantID,
		CreatedAt:      snap.CreatedAt,
		UpdatedAt:      snap.UpdatedAt,
		User:           &user,
		Session:        &session,
		AI:             &ai,
		Business:       &snap.Business,
	}
}
