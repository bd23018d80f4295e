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

// Package crmsync implements the bi-directional CRM synchroniser (C7): a
// background, per-(tenant, object-type) scheduler that reconciles local
// case records against a remote CRM's objects, detects and resolves
// conflicts, and parks unrecoverable records in a dead-letter queue.
//
// The remote CRM's wire protocol is out of scope — callers inject a
// Client implementation (the seam original_source's SalesforceClient
// occupied) so this package stays CRM-agnostic.
package crmsync

import (
	"context"
	"time"
)

// ObjectType names a syncable entity kind (e.g. "case", "contact", "account").
type ObjectType string

// Direction describes which way a sync record's data flows.
type Direction string

const (
	DirectionInbound       Direction = "inbound"
	DirectionOutbound      Direction = "outbound"
	DirectionBidirectional Direction = "bidirectional"
)

// ConflictStrategy selects how a detected conflict is resolved.
type ConflictStrategy string

const (
	StrategyLastWriteWins ConflictStrategy = "last_write_wins"
	StrategyMerge         ConflictStrategy = "merge"
	StrategyManual        ConflictStrategy = "manual"
)

// Status is the sync state of one local/remote record pair.
type Status string

const (
	StatusSynced   Status = "synced"
	StatusPending  Status = "pending"
	StatusFailed   Status = "failed"
	StatusConflict Status = "conflict"
)

// Mode selects which sync pass to run.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// Action is the plan decision made for one record during a sync pass.
type Action string

const (
	ActionNoop         Action = "noop"
	ActionPush         Action = "push"
	ActionPull         Action = "pull"
	ActionConflict     Action = "conflict"
	ActionCreateLocal  Action = "create_local"
	ActionCreateRemote Action = "create_remote"
)

// Record is a generic local-or-remote record: an opaque field bag keyed
// by domain field name, with the identity and modification time the
// synchroniser needs to reason about it. Local records carry RemoteID
// once linked; remote records carry their own ID in ID and leave
// RemoteID empty.
type Record struct {
	ID         string
	RemoteID   string
	ModifiedAt time.Time
	Fields     map[string]any
}

// FieldMapping declares one local-field <-> remote-field correspondence.
type FieldMapping struct {
	LocalField     string `mapstructure:"local_field"`
	RemoteField    string `mapstructure:"remote_field"`
	TypeTag        string `mapstructure:"type"`
	Required       bool   `mapstructure:"required"`
	Transform      string `mapstructure:"transform,omitempty"`
	ValidationTag  string `mapstructure:"validation,omitempty"`
}

// ObjectMapping is the declarative field mapping for one object type.
type ObjectMapping struct {
	ObjectType ObjectType       `mapstructure:"object_type"`
	Fields     []FieldMapping   `mapstructure:"fields"`
	Strategy   ConflictStrategy `mapstructure:"conflict_strategy,omitempty"`
}

// SyncRecord is the persisted pairing between one local and one remote
// record, per spec §3 "Sync record (CRM)".
type SyncRecord struct {
	LocalID            string
	RemoteID           string
	ObjectType         ObjectType
	Direction          Direction
	LastSyncTime       time.Time
	LastLocalModified  time.Time
	LastRemoteModified time.Time
	Status             Status
	ConflictStrategy   ConflictStrategy
	LastError          string
	RetryCount         int
}

// ChangeEvent is one externally observed remote-side change notification
// (from a long-poll or streaming transport opaque to this package).
type ChangeEvent struct {
	ObjectType ObjectType
	RemoteID   string
	ObservedAt time.Time
}

// DLQEntry is one dead-lettered record, per spec §4.7 "Dead-letter queue".
type DLQEntry struct {
	TenantID   string
	ObjectType ObjectType
	Record     Record
	ErrorText  string
	RetryCount int
	CreatedAt  time.Time
}

// ConflictEntry is one record pair parked for manual resolution.
type ConflictEntry struct {
	TenantID   string
	ObjectType ObjectType
	Local      Record
	Remote     Record
	CreatedAt  time.Time
}

// SyncResult summarises the outcome of one sync pass.
type SyncResult struct {
	TenantID         string
	ObjectType       ObjectType
	Mode             Mode
	Status           string // "completed" | "failed"
	TotalProcessed   int
	Successful       int
	Failed           int
	Conflicts        int
	Error            string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// TypeHealth is the per-object-type slice of an overall Health report.
type TypeHealth struct {
	ObjectType    ObjectType
	SyncLag       time.Duration
	LastOutcome   string
	DLQSize       int
	ConflictSize  int
}

// Health is the synchroniser-wide health snapshot (spec §4.7 "Health").
type Health struct {
	Status        string // "healthy" | "degraded"
	Types         map[ObjectType]TypeHealth
	SyncInProgress map[string]bool
	Timestamp     time.Time
}

// Client is the remote CRM's capability surface, injected by the caller.
// Implementations own authentication, pagination, and wire encoding.
type Client interface {
	FetchAll(ctx context.Context, objectType ObjectType) ([]Record, error)
	FetchChangedSince(ctx context.Context, objectType ObjectType, since time.Time) ([]Record, error)
	Create(ctx context.Context, objectType ObjectType, rec Record) (remoteID string, err error)
	Update(ctx context.Context, objectType ObjectType, remoteID string, rec Record) error
	Health(ctx context.Context) (healthy bool, detail string, err error)
}

// LocalStore is the local-side record surface.
type LocalStore interface {
	FetchAll(ctx context.Context, objectType ObjectType) ([]Record, error)
	FetchChangedSince(ctx context.Context, objectType ObjectType, since time.Time) ([]Record, error)
	Upsert(ctx context.Context, objectType ObjectType, rec Record) error
}

// Config tunes the synchroniser's defaults; per-mapping ConflictStrategy
// overrides Config.DefaultStrategy.
type Config struct {
	DefaultStrategy  ConflictStrategy
	DeadLetterTTL    time.Duration
	ConflictQueueTTL time.Duration
	RealtimeDebounce time.Duration
	MaxRetries       int
	LagAlarmThreshold time.Duration
}

// DefaultConfig mirrors pkg/convoconfig.CRMConfig's defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy:   StrategyLastWriteWins,
		DeadLetterTTL:     168 * time.Hour,
		ConflictQueueTTL:  720 * time.Hour,
		RealtimeDebounce:  2 * time.Second,
		MaxRetries:        3,
		LagAlarmThreshold: 5 * time.Minute,
	}
}
