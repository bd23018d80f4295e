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

package convotypes

import "time"

// SyncDirection is the direction a Sync record tracks.
type SyncDirection string

const (
	SyncDirectionInbound       SyncDirection = "inbound"
	SyncDirectionOutbound      SyncDirection = "outbound"
	SyncDirectionBidirectional SyncDirection = "bidirectional"
)

// SyncStatus is the state of a single (local, remote) pairing.
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusFailed   SyncStatus = "failed"
	SyncStatusConflict SyncStatus = "conflict"
)

// ConflictStrategy names which resolution policy a mapping uses.
type ConflictStrategy string

const (
	ConflictStrategyLastWriteWins ConflictStrategy = "last_write_wins"
	ConflictStrategyMerge         ConflictStrategy = "merge"
	ConflictStrategyManual        ConflictStrategy = "manual"
)

// SyncRecord tracks one CRM object's sync state for one tenant.
type SyncRecord struct {
	TenantID   string
	LocalID    string
	RemoteID   string
	ObjectType string
	Direction  SyncDirection

	LastSyncAt          time.Time
	LastLocalModifiedAt time.Time
	LastRemoteModifiedAt time.Time

	Status           SyncStatus
	ResolutionUsed   ConflictStrategy
	LastError        string
	RetryCount       int
}

// Key identifies a SyncRecord uniquely: at most one per (tenant, local id,
// object type) per the data-model invariant.
func (s *SyncRecord) Key() (tenant, localID, objectType string) {
	return s.TenantID, s.LocalID, s.ObjectType
}
