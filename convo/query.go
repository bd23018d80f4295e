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
	"time"

	"github.com/nordeim/convoengine/pkg/analytics"
	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/fsm"
	"github.com/nordeim/convoengine/pkg/orchestrator"
)

// StatusResult is the status() operation's response: the conversation's
// current lifecycle position and lightweight counters, without the full
// analytics breakdown summary() provides.
type StatusResult struct {
	ConversationID  string
	State           fsm.State
	PrevState       fsm.State
	CreatedAt       time.Time
	LastActivityAt  time.Time
	MessageCounts   map[convotypes.SenderClass]int
	Escalated       bool
	Resolved        bool
}

// Status returns a conversation's current FSM state and counters.
func (e *Engine) Status(ctx context.Context, conversationID string) (StatusResult, error) {
	conv, ok, err := e.store.FetchConversation(ctx, conversationID)
	if err != nil {
		return StatusResult{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return StatusResult{}, &UnknownConversationError{ConversationID: conversationID}
	}
	return StatusResult{
		ConversationID: conv.ID,
		State:          conv.State,
		PrevState:      conv.PrevState,
		CreatedAt:      conv.CreatedAt,
		LastActivityAt: conv.LastActivityAt,
		MessageCounts:  conv.MessageCountBySender,
		Escalated:      conv.Escalation != nil,
		Resolved:       conv.Resolution != nil,
	}, nil
}

// SummaryResult is the summary() operation's response: the conversation
// record plus the collector's live analytics snapshot while the
// conversation is still tracked; Finalized is set only as Summary
// describes.
type SummaryResult struct {
	Conversation *convotypes.Conversation
	Active       *analytics.ActiveSnapshot
	Finalized    *analytics.ConversationMetrics
}

// Summary returns the conversation record together with the live
// analytics snapshot for a conversation the collector still tracks. When
// the collector does not track it, Summary calls FinalizeConversation,
// which only succeeds for tracked conversations; a conversation that
// Close has already finalized therefore comes back with neither Active
// nor Finalized set, since the collector has no lookup of finalized
// metrics by id.
func (e *Engine) Summary(ctx context.Context, conversationID string) (SummaryResult, error) {
	conv, ok, err := e.store.FetchConversation(ctx, conversationID)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("fetch conversation: %w", err)
	}
	if !ok {
		return SummaryResult{}, &UnknownConversationError{ConversationID: conversationID}
	}

	res := SummaryResult{Conversation: conv}
	if snap, ok := e.analytics.GetActiveConversationMetrics(conversationID); ok {
		res.Active = &snap
		return res, nil
	}
	if fin, ok := e.analytics.FinalizeConversation(conversationID); ok {
		res.Finalized = &fin
	}
	return res, nil
}

// SystemMetricsResult is the system_metrics() operation's response: the
// analytics collector's system-wide rollup plus the per-provider cost
// summary the original's get_cost_summary exposed.
type SystemMetricsResult struct {
	Metrics analytics.MetricsSummary
	Cost    orchestrator.CostSummary
}

// SystemMetrics aggregates the analytics collector's rollup with a
// per-provider cost breakdown derived from the orchestrator's per-model
// usage counters and the registry's model-to-provider mapping.
func (e *Engine) SystemMetrics(ctx context.Context) SystemMetricsResult {
	return SystemMetricsResult{
		Metrics: e.analytics.GetMetricsSummary(),
		Cost:    e.costSummary(),
	}
}

func (e *Engine) costSummary() orchestrator.CostSummary {
	providerOf := make(map[string]string)
	for _, d := range e.registry.AllDescriptors() {
		providerOf[d.Name] = d.Provider
	}

	byProvider := make(map[string]orchestrator.ModelUsage)
	var totalCost float64
	var totalTokens int64

	for model, usage := range e.orch.UsageSnapshot() {
		provider := providerOf[model]
		if provider == "" {
			provider = model
		}
		agg := byProvider[provider]
		agg.RequestCount += usage.RequestCount
		agg.FailureCount += usage.FailureCount
		agg.CumulativeTokens += usage.CumulativeTokens
		agg.CumulativeCost += usage.CumulativeCost
		byProvider[provider] = agg

		totalCost += usage.CumulativeCost
		totalTokens += usage.CumulativeTokens
	}

	return orchestrator.CostSummary{
		TotalCost:   totalCost,
		TotalTokens: totalTokens,
		ByModel:     byProvider,
	}
}

// HealthResult is the health() operation's response: a liveness verdict
// plus the state of each subsystem that could independently degrade.
type HealthResult struct {
	Status          string // "healthy" | "degraded"
	ActiveContexts  int
	BreakerStates   map[string]orchestrator.BreakerState
	TenantSync      map[string]TenantSyncHealth
}

type TenantSyncHealth struct {
	Status  string
	Error   string
}

// Health reports overall system health: ephemeral-context-store size,
// each model's circuit-breaker state, and, when a synchroniser is
// attached, per-tenant CRM sync health for every tenant seen so far.
func (e *Engine) Health(ctx context.Context) HealthResult {
	res := HealthResult{
		Status:         "healthy",
		ActiveContexts: e.contextStore.Len(),
		BreakerStates:  make(map[string]orchestrator.BreakerState),
	}

	for _, d := range e.registry.AllDescriptors() {
		state := e.orch.BreakerState(d.Name)
		res.BreakerStates[d.Name] = state
		if state == orchestrator.BreakerOpen {
			res.Status = "degraded"
		}
	}

	if e.sync != nil {
		res.TenantSync = make(map[string]TenantSyncHealth)
		for _, tenantID := range e.knownTenants() {
			h, err := e.sync.HealthCheck(ctx, tenantID)
			if err != nil {
				res.TenantSync[tenantID] = TenantSyncHealth{Status: "degraded", Error: err.Error()}
				res.Status = "degraded"
				continue
			}
			res.TenantSync[tenantID] = TenantSyncHealth{Status: h.Status}
			if h.Status != "healthy" {
				res.Status = "degraded"
			}
		}
	}

	return res
}
