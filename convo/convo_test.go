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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordeim/convoengine/pkg/adaptation"
	"github.com/nordeim/convoengine/pkg/analytics"
	"github.com/nordeim/convoengine/pkg/convocontext"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/orchestrator"
	"github.com/nordeim/convoengine/pkg/pipeline"
	"github.com/nordeim/convoengine/pkg/providers"
)

// fakeStore is an in-memory Store good enough to exercise the facade
// without a real database.
type fakeStore struct {
	mu       sync.Mutex
	convs    map[string]*convotypes.Conversation
	messages map[string][]convotypes.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs:    make(map[string]*convotypes.Conversation),
		messages: make(map[string][]convotypes.Message),
	}
}

func (s *fakeStore) FetchConversation(ctx context.Context, id string) (*convotypes.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (s *fakeStore) UpsertConversation(ctx context.Context, conv *convotypes.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

func (s *fakeStore) FetchMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]convotypes.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []convotypes.Message
	for _, m := range s.messages[conversationID] {
		if m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertMessage(ctx context.Context, msg *convotypes.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

// fakeProvider returns a canned Result for whatever capability it's
// invoked with, or an error if the capability has no configured output —
// used to simulate an always-failing generation step.
type fakeProvider struct {
	outputs map[convotypes.Capability]providers.Result
}

func (f *fakeProvider) Invoke(ctx context.Context, req providers.Request) (providers.Result, error) {
	out, ok := f.outputs[req.Capability]
	if !ok {
		return providers.Result{}, assert.AnError
	}
	return out, nil
}

func registerCapability(t *testing.T, reg *providers.Registry, cap convotypes.Capability, p providers.Provider) {
	t.Helper()
	desc := &convotypes.ModelDescriptor{
		Name:         string(cap) + "-model",
		Provider:     "fake",
		Capabilities: map[convotypes.Capability]struct{}{cap: {}},
		Active:       true,
	}
	require.NoError(t, reg.Register(desc, p))
}

// testEngine bundles an Engine with the fake store backing it, so tests
// can both call facade operations and inspect what got persisted.
type testEngine struct {
	*Engine
	store *fakeStore
}

func newTestEngine(t *testing.T, generationFails bool) testEngine {
	t.Helper()

	outputs := map[convotypes.Capability]providers.Result{
		convotypes.CapabilityLanguageDetection: {Output: "en", ModelUsed: "lang-model", Confidence: 0.95},
		convotypes.CapabilityIntentClassify: {
			Output:     map[string]any{"intent": "billing_inquiry", "parameters": map[string]any{}},
			ModelUsed:  "intent-model",
			Confidence: 0.9,
		},
		convotypes.CapabilitySentimentAnalysis: {
			Output:     map[string]any{"sentiment": "neutral", "score": 0.1},
			ModelUsed:  "sentiment-model",
			Confidence: 0.85,
		},
		convotypes.CapabilityEmotionDetection: {
			Output:     map[string]any{"emotion": "neutral", "intensity": 0.2},
			ModelUsed:  "emotion-model",
			Confidence: 0.8,
		},
		convotypes.CapabilityEntityExtraction: {Output: []convotypes.Entity{}, ModelUsed: "entity-model", Confidence: 0.9},
		convotypes.CapabilityRetrieval:        {Output: "relevant help article", ModelUsed: "retrieval-model", Confidence: 0.9},
	}
	if !generationFails {
		outputs[convotypes.CapabilityChatCompletion] = providers.Result{
			Output: "Here is your invoice summary.", ModelUsed: "chat-model", Confidence: 0.92,
		}
	}

	reg := providers.NewRegistry()
	fp := &fakeProvider{outputs: outputs}
	caps := []convotypes.Capability{
		convotypes.CapabilityLanguageDetection,
		convotypes.CapabilityIntentClassify,
		convotypes.CapabilitySentimentAnalysis,
		convotypes.CapabilityEmotionDetection,
		convotypes.CapabilityEntityExtraction,
		convotypes.CapabilityRetrieval,
		convotypes.CapabilityChatCompletion,
	}
	for _, cap := range caps {
		registerCapability(t, reg, cap, fp)
	}

	orch := orchestrator.New(reg, orchestrator.DefaultConfig(), nil)
	machine := fsm.New(nil)
	pl := pipeline.New(orch, adaptation.NewIntentRegistry(nil), adaptation.NewEmotionHandler(), machine, pipeline.DefaultConfig(), nil)
	ctxStore := convocontext.NewStore(time.Hour, nil)
	collector := analytics.NewCollector(50, nil)

	store := newFakeStore()
	e := New(store, ctxStore, machine, pl, collector, orch, reg, nil,
		WithTenantValidator(func(tenantID string) bool { return tenantID == "acme" }),
	)
	return testEngine{Engine: e, store: store}
}

func TestCreateConversation_HappyPath(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, map[string]any{"plan": "pro"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	conv, ok, err := te.store.FetchConversation(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fsm.StateInitialized, conv.State)
	assert.Equal(t, "acme", conv.TenantID)

	record, err := te.contextStore.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "pro", record.Session.ContextVariables["plan"])
}

func TestCreateConversation_InvalidTenant(t *testing.T) {
	te := newTestEngine(t, false)
	_, err := te.CreateConversation(context.Background(), "unknown-tenant", "user-1", convotypes.ChannelWebChat, nil)
	require.Error(t, err)
	var invalidErr *InvalidTenantError
	assert.ErrorAs(t, err, &invalidErr)
	assert.ErrorIs(t, err, convotypes.ErrInvalidTenant)
}

func TestPostUserMessage_HappyPath(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)

	// Move the conversation into a message-receivable state first.
	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateActive
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	result, err := te.PostUserMessage(ctx, id, "I have a question about my invoice")
	require.NoError(t, err)
	assert.Equal(t, "Here is your invoice summary.", result.ResponseText)
	assert.Equal(t, "billing_inquiry", result.Annotations.Intent)
	assert.NotEmpty(t, result.MessageID)

	msgs, err := te.store.FetchMessagesSince(ctx, id, time.Time{})
	require.NoError(t, err)
	assert.Len(t, msgs, 2) // inbound + outbound
}

func TestPostUserMessage_UnknownConversation(t *testing.T) {
	te := newTestEngine(t, false)
	_, err := te.PostUserMessage(context.Background(), "does-not-exist", "hi")
	require.Error(t, err)
	var unknownErr *UnknownConversationError
	assert.ErrorAs(t, err, &unknownErr)
	assert.ErrorIs(t, err, convotypes.ErrUnknownConversation)
}

func TestPostUserMessage_NotReceivableInResolvedState(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)

	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateResolved
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	_, err = te.PostUserMessage(ctx, id, "still there?")
	require.Error(t, err)
	var notReceivable *NotReceivableError
	assert.ErrorAs(t, err, &notReceivable)
	assert.ErrorIs(t, err, convotypes.ErrNotReceivable)
}

func TestPostUserMessage_AllProvidersFailedParksConversation(t *testing.T) {
	te := newTestEngine(t, true) // the chat-completion model's provider always fails
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)

	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateActive
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	result, err := te.PostUserMessage(ctx, id, "I have a question about my invoice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, convotypes.ErrAllProvidersFailed))
	assert.NotEmpty(t, result.ResponseText) // the canned fallback still reached the user

	persisted, _, _ := te.store.FetchConversation(ctx, id)
	assert.Equal(t, fsm.StateWaitingForUser, persisted.State)
}

func TestClose_RejectsInvalidTransitionFromInitialized(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)

	err = te.Close(ctx, id, "resolved_by_agent", "agent-1", "done", nil, nil)
	require.Error(t, err)
	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
	assert.ErrorIs(t, err, convotypes.ErrInvalidTransition)
}

func TestEscalateThenClose(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)

	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateActive
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	require.NoError(t, te.Escalate(ctx, id, "customer requested a human", "agent-1", "tier-2"))

	status, err := te.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fsm.StateEscalated, status.State)
	assert.True(t, status.Escalated)

	require.NoError(t, te.Close(ctx, id, "resolved_by_agent", "agent-1", "resolved after escalation", nil, nil))

	status, err = te.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fsm.StateResolved, status.State)
	assert.True(t, status.Resolved)
}

func TestTryLockConversation_RejectsConcurrentTurn(t *testing.T) {
	te := newTestEngine(t, false)

	release, busy := te.tryLockConversation("conv-1")
	require.False(t, busy)
	require.NotNil(t, release)

	_, busy = te.tryLockConversation("conv-1")
	assert.True(t, busy, "a second lock attempt on the same conversation must fail fast")

	release()

	_, busy = te.tryLockConversation("conv-1")
	assert.False(t, busy, "the lock must be available again once released")
}

func TestPostUserMessage_RejectsWhileTurnInFlight(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)
	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateActive
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	release, busy := te.tryLockConversation(id)
	require.False(t, busy)
	defer release()

	_, err = te.PostUserMessage(ctx, id, "are you there?")
	require.Error(t, err)
	assert.ErrorIs(t, err, convotypes.ErrConversationBusy)
}

func TestSystemMetricsAndHealth(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	id, err := te.CreateConversation(ctx, "acme", "user-1", convotypes.ChannelWebChat, nil)
	require.NoError(t, err)
	conv, _, _ := te.store.FetchConversation(ctx, id)
	conv.State = fsm.StateActive
	require.NoError(t, te.store.UpsertConversation(ctx, conv))

	_, err = te.PostUserMessage(ctx, id, "what's my balance?")
	require.NoError(t, err)

	metrics := te.SystemMetrics(ctx)
	assert.GreaterOrEqual(t, metrics.Metrics.ActiveConversations, 1)
	assert.Greater(t, len(metrics.Cost.ByModel), 0)

	health := te.Health(ctx)
	assert.Equal(t, "healthy", health.Status)
	assert.GreaterOrEqual(t, health.ActiveContexts, 1)
}
