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

package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// memoryStore is an in-process implementation of convo.Store: a
// mutex-guarded map keyed by id, the same shape as
// pkg/session.inMemoryService. It satisfies the narrow fetch/upsert/
// list-since seam the facade requires; a deployment that needs
// durability swaps this for a SQL- or document-store-backed Store
// without the facade itself changing.
type memoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*convotypes.Conversation
	messages      map[string][]convotypes.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		conversations: make(map[string]*convotypes.Conversation),
		messages:      make(map[string][]convotypes.Message),
	}
}

func (s *memoryStore) FetchConversation(_ context.Context, conversationID string) (*convotypes.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, false, nil
	}
	copied := *conv
	return &copied, true, nil
}

func (s *memoryStore) UpsertConversation(_ context.Context, conv *convotypes.Conversation) error {
	if conv == nil {
		return fmt.Errorf("memory store: nil conversation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *conv
	s.conversations[conv.ID] = &copied
	return nil
}

func (s *memoryStore) FetchMessagesSince(_ context.Context, conversationID string, since time.Time) ([]convotypes.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[conversationID]
	out := make([]convotypes.Message, 0, len(all))
	for _, m := range all {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) UpsertMessage(_ context.Context, msg *convotypes.Message) error {
	if msg == nil {
		return fmt.Errorf("memory store: nil message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[msg.ConversationID]
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = *msg
			s.messages[msg.ConversationID] = msgs
			return nil
		}
	}
	s.messages[msg.ConversationID] = append(msgs, *msg)
	return nil
}
