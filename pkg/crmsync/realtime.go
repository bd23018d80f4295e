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

package crmsync

import (
	"context"
	"time"
)

// HandleChangeEvent processes one externally observed remote change
// notification (spec §4.7 "Real-time sync"). Multiple events for the
// same (tenant, object type) within the configured debounce window
// coalesce into a single incremental sync pass, started once the
// window elapses without a further event.
func (s *Synchroniser) HandleChangeEvent(tenantID string, ev ChangeEvent) {
	s.observeRemoteModified(tenantID, ev.ObjectType, ev.ObservedAt)

	k := key(tenantID, ev.ObjectType)
	debounce := s.cfg.RealtimeDebounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	s.mu.Lock()
	if t, ok := s.debounceTimers[k]; ok {
		t.Stop()
	}
	s.debounceTimers[k] = time.AfterFunc(debounce, func() {
		s.triggerDebouncedSync(tenantID, ev.ObjectType)
	})
	s.mu.Unlock()
}

func (s *Synchroniser) triggerDebouncedSync(tenantID string, ot ObjectType) {
	s.mu.Lock()
	delete(s.debounceTimers, key(tenantID, ot))
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.SyncIncremental(ctx, tenantID, ot); err != nil {
		s.logger.Error("crm real-time debounced sync failed", "tenant", tenantID, "object_type", ot, "error", err)
	}
}

// StopRealtime cancels any pending debounced sync for (tenantID, ot)
// without running it — used during shutdown.
func (s *Synchroniser) StopRealtime(tenantID string, ot ObjectType) {
	k := key(tenantID, ot)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.debounceTimers[k]; ok {
		t.Stop()
		delete(s.debounceTimers, k)
	}
}
