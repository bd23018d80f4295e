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

// Package orchestrator implements the AI Orchestrator (C2): confidence
// gated routing over the provider registry's fallback chains, sequential/
// parallel/hybrid fallback strategies, a per-model circuit breaker, and
// cost/usage tracking with running averages.
package orchestrator

import "time"

// FallbackStrategy selects how a model chain is walked.
type FallbackStrategy string

const (
	StrategySequential FallbackStrategy = "sequential"
	StrategyParallel   FallbackStrategy = "parallel"
	StrategyHybrid     FallbackStrategy = "hybrid"
)

// Config holds the orchestrator's tunables, all with the spec's defaults.
type Config struct {
	Strategy FallbackStrategy

	ConfidenceThreshold float64 // default 0.7

	MaxAttempts        int           // default 3
	TimeoutPerAttempt  time.Duration // default 30s
	ParallelTimeout    time.Duration // default 60s

	RetryBaseDelay      time.Duration // default 1s
	RetryMaxDelay       time.Duration // default 30s
	ExponentialBackoff  bool          // default true

	CircuitBreakerThreshold int           // default 5
	CircuitBreakerCooldown  time.Duration // default 300s
}

// DefaultConfig returns the spec's literal defaults (mirrors
// original_source FallbackConfig).
func DefaultConfig() Config {
	return Config{
		Strategy:                StrategySequential,
		ConfidenceThreshold:     0.7,
		MaxAttempts:             3,
		TimeoutPerAttempt:       30 * time.Second,
		ParallelTimeout:         60 * time.Second,
		RetryBaseDelay:          1 * time.Second,
		RetryMaxDelay:           30 * time.Second,
		ExponentialBackoff:      true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  300 * time.Second,
	}
}

// delayFor returns the backoff delay before attempt number k (0-indexed),
// base * 2^k capped at RetryMaxDelay, or a flat RetryBaseDelay when
// exponential backoff is disabled.
func (c Config) delayFor(k int) time.Duration {
	if !c.ExponentialBackoff {
		return c.RetryBaseDelay
	}
	d := c.RetryBaseDelay
	for i := 0; i < k; i++ {
		d *= 2
		if d >= c.RetryMaxDelay {
			return c.RetryMaxDelay
		}
	}
	return d
}
