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
	"log/slog"
	"sync"
	"time"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// DefaultTTL is how long a conversation's context survives without
// activity before a Sweep reclaims it.
const DefaultTTL = 24 * time.Hour

// Store holds one Record per live conversation, keyed by conversation ID.
// It is the process-local layered context store described by C3; nothing
// here talks to a database — Restore/Serialize are the seam a persistence
// layer would hook into.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates an empty Store with the given TTL (DefaultTTL if ttl
// is zero).
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[string]*Record),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Create registers a brand new Record for conversationID. Returns
// ErrConversationBusy if one already exists.
func (s *Store) Create(conversationID, tenantID, userID, channel string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[conversationID]; exists {
		return nil, convotypes.ErrConversationBusy
	}
	rec := NewRecord(conversationID, tenantID, userID, channel, s.now())
	s.records[conversationID] = rec
	return rec, nil
}

// Get returns the Record for conversationID, or ErrUnknownConversation.
func (s *Store) Get(conversationID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[conversationID]
	if !ok {
		return nil, convotypes.ErrUnknownConversation
	}
	return rec, nil
}

// GetOrCreate returns the existing Record for conversationID, creating one
// if absent.
func (s *Store) GetOrCreate(conversationID, tenantID, userID, channel string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[conversationID]; ok {
		return rec
	}
	rec := NewRecord(conversationID, tenantID, userID, channel, s.now())
	s.records[conversationID] = rec
	return rec
}

// Drop removes conversationID's Record, e.g. on conversation archival.
func (s *Store) Drop(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, conversationID)
}

// Restore re-inserts a previously serialized Record, e.g. on process
// restart from external persistence.
func (s *Store) Restore(snap Snapshot) *Record {
	rec := Restore(snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ConversationID] = rec
	return rec
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Sweep removes records idle longer than the store's TTL. Returns the
// number reclaimed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for id, rec := range s.records {
		if rec.IsExpired(s.ttl, now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	for _, id := range expired {
		delete(s.records, id)
	}
	s.mu.Unlock()

	s.logger.Info("context store sweep reclaimed expired conversations", "count", len(expired))
	return len(expired)
}

// RunSweeper starts a background goroutine that calls Sweep every
// interval until stop is closed.
func (s *Store) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
