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

// Package providers implements the Provider Registry & Router: a
// name-addressed catalog of model descriptors indexed by capability and
// provider, with deterministic, cycle-safe fallback-chain resolution.
//
// The registry never talks to a concrete vendor HTTP API itself — callers
// inject a Provider implementation (backed by whichever SDK they choose)
// keyed by the same name as its ModelDescriptor.
package providers

import (
	"context"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// Request is one capability call dispatched to a Provider.
type Request struct {
	Capability  convotypes.Capability
	Input       any
	Overrides   map[string]any
	ContextSnapshot any
}

// Result is what a Provider call returns before orchestration-level
// wrapping (cost, elapsed, fallback-used) is added by the caller.
type Result struct {
	Output           any
	ModelUsed        string
	PromptTokens     int
	CompletionTokens int
	Confidence       float64
}

// Provider is the capability interface the orchestrator calls through. It
// deliberately says nothing about HTTP, SDKs, or wire formats.
type Provider interface {
	// Invoke executes req against this provider's backing model.
	Invoke(ctx context.Context, req Request) (Result, error)
}
