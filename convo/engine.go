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

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// CreateConversation opens a new conversation for tenantID/userID on
// channel: validates the tenant, creates the durable Conversation record
// via Store, allocates the ephemeral four-layer context, and starts
// analytics tracking. metadata seeds the session layer's context
// variables (free-form key/value data carried for the session).
func (e *Engine) CreateConversation(ctx context.Context, tenantID, userID string, channel convotypes.Channel, metadata map[string]any) (string, error) {
	if tenantID == "" || (e.validateTenant != nil && !e.validateTenant(tenantID)) {
		return "", &InvalidTenantError{TenantID: tenantID}
	}

	id := e.newID()
	now := e.now()

	conv := convotypes.NewConversation(id, tenantID, userID, channel, now)
	if err := e.store.UpsertConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("persist new conversation: %w", err)
	}

	record := e.contextStore.GetOrCreate(id, tenantID, userID, string(channel))
	if len(metadata) > 0 {
		record.WithLock(func() {
			for k, v := range metadata {
				record.Session.ContextVariables[k] = v
			}
		})
	}

	e.analytics.StartConversationTracking(id, tenantID, userID, string(channel))
	e.rememberTenant(tenantID)

	e.logger.Info("conversation created", "conversation_id", id, "tenant_id", tenantID, "channel", channel)
	return id, nil
}
