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

// Package convo is the public facade of the conversation orchestrator
// (spec §6 "External interfaces"): create_conversation, post_user_message,
// escalate, close, status, summary, system_metrics, and health. It wires
// together the context store (C3), the FSM (C4), the message pipeline
// (C5, itself wrapping the provider registry and orchestrator), the
// adaptation layer's outputs (C6, surfaced through the pipeline), the CRM
// synchroniser (C7), and the analytics collector (C8).
//
// The facade owns no durable storage itself. Conversation and Message
// records are delegated to a Store the caller injects — the "narrow
// interface (fetch-by-id, upsert, list-since)" spec §6 describes — so this
// package never opens a database connection.
package convo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nordeim/convoengine/pkg/analytics"
	"github.com/nordeim/convoengine/pkg/convocontext"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/crmsync"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/orchestrator"
	"github.com/nordeim/convoengine/pkg/pipeline"
	"github.com/nordeim/convoengine/pkg/providers"
)

// Store is the narrow persistence seam spec §6 requires: fetch-by-id,
// upsert, and list-since, for the two durable record kinds the facade
// touches directly. A SQL-backed, document-store-backed, or in-memory
// implementation are all equally valid; the facade only depends on this
// interface.
type Store interface {
	FetchConversation(ctx context.Context, conversationID string) (*convotypes.Conversation, bool, error)
	UpsertConversation(ctx context.Context, conv *convotypes.Conversation) error
	FetchMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]convotypes.Message, error)
	UpsertMessage(ctx context.Context, msg *convotypes.Message) error
}

// TenantValidator reports whether a tenant id is known/active. Injecting
// this is optional — with none configured, any non-empty tenant id is
// accepted, matching the spec's deliberately unspecified tenant directory.
type TenantValidator func(tenantID string) bool

// Engine implements the public API surface over the wired subsystem.
type Engine struct {
	store        Store
	contextStore *convocontext.Store
	machine      *fsm.Machine
	pipeline     *pipeline.Pipeline
	analytics    *analytics.Collector
	orch         *orchestrator.Orchestrator
	registry     *providers.Registry
	sync         *crmsync.Synchroniser

	validateTenant TenantValidator

	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	tenantsMu sync.Mutex
	tenants   map[string]struct{}

	turnLocks sync.Map // conversationID -> *sync.Mutex, held for the duration of one PostUserMessage call
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithSynchroniser attaches the CRM synchroniser so Health can report
// sync-lag/DLQ/conflict-queue state alongside the rest of the system.
func WithSynchroniser(s *crmsync.Synchroniser) Option {
	return func(e *Engine) { e.sync = s }
}

// WithTenantValidator restricts create_conversation to tenants that
// validate true, per spec §7 InvalidTenant.
func WithTenantValidator(v TenantValidator) Option {
	return func(e *Engine) { e.validateTenant = v }
}

// New wires an Engine from its required collaborators.
func New(
	store Store,
	contextStore *convocontext.Store,
	machine *fsm.Machine,
	pl *pipeline.Pipeline,
	collector *analytics.Collector,
	orch *orchestrator.Orchestrator,
	registry *providers.Registry,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if machine == nil {
		machine = fsm.New(logger)
	}
	e := &Engine{
		store:        store,
		contextStore: contextStore,
		machine:      machine,
		pipeline:     pl,
		analytics:    collector,
		orch:         orch,
		registry:     registry,
		logger:       logger,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		tenants:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// rememberTenant records tenantID so Health can later enumerate the
// tenants this process has actually seen, without requiring a separate
// tenant directory collaborator.
func (e *Engine) rememberTenant(tenantID string) {
	e.tenantsMu.Lock()
	e.tenants[tenantID] = struct{}{}
	e.tenantsMu.Unlock()
}

// tryLockConversation acquires the per-conversation turn lock without
// blocking. A caller that finds it already held means a prior
// PostUserMessage for this conversation hasn't finished yet — rejected
// with ErrConversationBusy (spec.md §9 Open Question: reject, don't
// queue) rather than serialized, since queueing inside the facade would
// hide backpressure a caller needs to see.
func (e *Engine) tryLockConversation(conversationID string) (release func(), busy bool) {
	v, _ := e.turnLocks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, true
	}
	return mu.Unlock, false
}

func (e *Engine) knownTenants() []string {
	e.tenantsMu.Lock()
	defer e.tenantsMu.Unlock()
	out := make([]string, 0, len(e.tenants))
	for t := range e.tenants {
		out = append(out, t)
	}
	return out
}
