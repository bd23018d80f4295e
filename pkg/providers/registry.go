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

package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nordeim/convoengine/pkg/convotypes"
	"github.com/nordeim/convoengine/pkg/registry"
)

// entry pairs a descriptor with its bound Provider implementation; the
// registration order used for capability tie-breaks is stored on the
// descriptor itself.
type entry struct {
	descriptor *convotypes.ModelDescriptor
	provider   Provider
}

// Registry is the name-addressed catalog of model descriptors. It is
// read-mostly: after a configuration phase it is effectively immutable,
// and readers do not need to lock (the spec's shared-resource policy for
// C1), but Register/Deactivate still take a lock to guard the
// configuration phase itself and any later hot updates.
type Registry struct {
	mu    sync.RWMutex
	base  *registry.BaseRegistry[entry]
	order int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[entry]()}
}

// Register adds a model descriptor and its bound provider. Returns an
// error if the name is already registered.
func (r *Registry) Register(descriptor *convotypes.ModelDescriptor, provider Provider) error {
	if descriptor == nil {
		return fmt.Errorf("model descriptor cannot be nil")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	r.mu.Lock()
	descriptor.SetInsertionOrder(r.order)
	r.order++
	r.mu.Unlock()

	return r.base.Register(descriptor.Name, entry{descriptor: descriptor, provider: provider})
}

// Lookup returns the descriptor and provider for name, or ok=false.
func (r *Registry) Lookup(name string) (*convotypes.ModelDescriptor, Provider, bool) {
	e, ok := r.base.Get(name)
	if !ok {
		return nil, nil, false
	}
	return e.descriptor, e.provider, true
}

// Deactivate flips a descriptor's active flag off, e.g. when an operator
// pulls a model from rotation. It is the one mutation allowed after the
// configuration phase.
func (r *Registry) Deactivate(name string) error {
	e, ok := r.base.Get(name)
	if !ok {
		return fmt.Errorf("model '%s' not registered", name)
	}
	r.mu.Lock()
	e.descriptor.Active = false
	r.mu.Unlock()
	return nil
}

// CandidatesForCapability returns active descriptors advertising cap,
// ordered by registry insertion order (the spec's tie-break rule).
func (r *Registry) CandidatesForCapability(cap convotypes.Capability) []*convotypes.ModelDescriptor {
	all := r.base.List()
	out := make([]*convotypes.ModelDescriptor, 0, len(all))
	for _, e := range all {
		if e.descriptor.Active && e.descriptor.HasCapability(cap) {
			out = append(out, e.descriptor)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InsertionOrder() < out[j].InsertionOrder()
	})
	return out
}

// FallbackChain walks name's fallback list, skipping inactive and
// already-visited entries, and returns the deterministic sequence
// starting at name. The walk is cycle-safe: a descriptor never appears
// twice, and a name that does not resolve to a known, active descriptor
// terminates the chain instead of erroring.
func (r *Registry) FallbackChain(name string) []*convotypes.ModelDescriptor {
	visited := make(map[string]struct{})
	var chain []*convotypes.ModelDescriptor

	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if _, seen := visited[n]; seen {
			continue
		}
		visited[n] = struct{}{}

		desc, _, ok := r.Lookup(n)
		if !ok || !desc.Active {
			continue
		}
		chain = append(chain, desc)
		queue = append(queue, desc.FallbackChain...)
	}
	return chain
}

// ResolveChain builds the model chain the orchestrator should try for a
// request: the preferred model's fallback chain if the preferred model is
// registered, capability-compatible, and non-empty; otherwise the
// capability's candidate list.
func (r *Registry) ResolveChain(cap convotypes.Capability, preferred string) []*convotypes.ModelDescriptor {
	if preferred != "" {
		if desc, _, ok := r.Lookup(preferred); ok && desc.HasCapability(cap) {
			chain := r.FallbackChain(preferred)
			if len(chain) > 0 {
				return chain
			}
		}
	}
	return r.CandidatesForCapability(cap)
}

// ProviderFor returns the bound Provider implementation for a descriptor
// name, used by the orchestrator once it has chosen a model from a chain.
func (r *Registry) ProviderFor(name string) (Provider, bool) {
	_, p, ok := r.Lookup(name)
	return p, ok
}

// AllDescriptors returns every registered descriptor, active or not, in no
// particular order — used by health/diagnostics views that need the full
// catalog rather than one capability's candidate list.
func (r *Registry) AllDescriptors() []*convotypes.ModelDescriptor {
	all := r.base.List()
	out := make([]*convotypes.ModelDescriptor, 0, len(all))
	for _, e := range all {
		out = append(out, e.descriptor)
	}
	return out
}
