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
	"testing"
	"time"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpsertAndFetchConversation(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()

	_, ok, err := s.FetchConversation(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	conv := &convotypes.Conversation{ID: "c1", TenantID: "tenant-a"}
	require.NoError(t, s.UpsertConversation(ctx, conv))

	fetched, ok, err := s.FetchConversation(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tenant-a", fetched.TenantID)

	// Mutating the fetched copy must not mutate the store's state.
	fetched.TenantID = "mutated"
	again, _, _ := s.FetchConversation(ctx, "c1")
	assert.Equal(t, "tenant-a", again.TenantID)
}

func TestMemoryStore_FetchMessagesSinceOrdersByCreatedAt(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertMessage(ctx, &convotypes.Message{ID: "m2", ConversationID: "c1", CreatedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, s.UpsertMessage(ctx, &convotypes.Message{ID: "m1", ConversationID: "c1", CreatedAt: base.Add(1 * time.Minute)}))
	require.NoError(t, s.UpsertMessage(ctx, &convotypes.Message{ID: "m0", ConversationID: "c1", CreatedAt: base}))

	msgs, err := s.FetchMessagesSince(ctx, "c1", base.Add(30*time.Second))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestMemoryStore_UpsertMessageReplacesExisting(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.UpsertMessage(ctx, &convotypes.Message{ID: "m1", ConversationID: "c1", Content: "first", CreatedAt: base}))
	require.NoError(t, s.UpsertMessage(ctx, &convotypes.Message{ID: "m1", ConversationID: "c1", Content: "edited", CreatedAt: base}))

	msgs, err := s.FetchMessagesSince(ctx, "c1", base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "edited", msgs[0].Content)
}

func TestMemoryStore_UpsertNilRejected(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()
	assert.Error(t, s.UpsertConversation(ctx, nil))
	assert.Error(t, s.UpsertMessage(ctx, nil))
}
