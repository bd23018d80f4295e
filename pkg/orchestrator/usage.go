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

package orchestrator

import (
	"sync"
	"time"
)

// ModelUsage accumulates cost/usage counters for one model. Updates are
// atomic under usageTracker's single lock.
type ModelUsage struct {
	RequestCount      int64
	FailureCount      int64
	CumulativeTokens  int64
	CumulativeCost    float64
	AvgConfidence     float64
	AvgLatency        time.Duration
}

type usageTracker struct {
	mu    sync.Mutex
	byModel map[string]*ModelUsage
}

func newUsageTracker() *usageTracker {
	return &usageTracker{byModel: make(map[string]*ModelUsage)}
}

// recordSuccess folds one successful (or billed-failed) call into the
// model's running averages using the standard incremental-mean formula:
// avg' = avg + (x - avg) / n.
func (t *usageTracker) recordSuccess(model string, tokens int, cost float64, confidence float64, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.byModel[model]
	if u == nil {
		u = &ModelUsage{}
		t.byModel[model] = u
	}
	u.RequestCount++
	u.CumulativeTokens += int64(tokens)
	u.CumulativeCost += cost

	n := float64(u.RequestCount)
	u.AvgConfidence += (confidence - u.AvgConfidence) / n
	u.AvgLatency += time.Duration((float64(latency) - float64(u.AvgLatency)) / n)
}

func (t *usageTracker) recordFailure(model string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.byModel[model]
	if u == nil {
		u = &ModelUsage{}
		t.byModel[model] = u
	}
	u.FailureCount++
}

// Snapshot returns a copy of the per-model usage table.
func (t *usageTracker) Snapshot() map[string]ModelUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ModelUsage, len(t.byModel))
	for k, v := range t.byModel {
		out[k] = *v
	}
	return out
}

// Reset clears all usage counters.
func (t *usageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byModel = make(map[string]*ModelUsage)
}

// CostSummary is the system_metrics-facing cost view: cumulative cost per
// provider, aggregated from per-model usage by the caller (the convo
// Engine's costSummary groups ModelUsage entries by the descriptor's
// Provider tag).
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	ByModel     map[string]ModelUsage
}
