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

// BreakerState is one of closed/open/half-open.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// CircuitBreaker gates calls to a single model based on its recent failure
// history. All mutations are under a per-breaker lock (the spec's
// "shared-mutable circuit-breaker state... atomic under a per-model lock").
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenProbeInFlight bool
}

// NewCircuitBreaker creates a closed breaker with the given threshold and
// cool-down window.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     BreakerClosed,
	}
}

// CanExecute reports whether a call should be allowed through right now,
// and transitions open→half-open once the cool-down has elapsed.
func (b *CircuitBreaker) CanExecute(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if now.Sub(b.openedAt) >= b.cooldown {
			b.state = BreakerHalfOpen
			b.halfOpenProbeInFlight = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// Only one probe at a time; concurrent callers during half-open
		// are rejected until the probe resolves.
		if b.halfOpenProbeInFlight {
			return false
		}
		b.halfOpenProbeInFlight = true
		return true
	default:
		return true
	}
}

// RecordSuccess resets the breaker to closed.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.consecutiveFailures = 0
	b.halfOpenProbeInFlight = false
}

// RecordFailure increments the consecutive-failure count and opens the
// breaker once threshold is reached (or immediately, if the failing call
// was the half-open probe).
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = now
		b.halfOpenProbeInFlight = false
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = now
	}
}

// State returns the breaker's current state, for health/diagnostics.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak, for diagnostics.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
