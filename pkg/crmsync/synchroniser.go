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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nordeim/convoengine/pkg/convotypes"
)

// Synchroniser is the bi-directional CRM sync engine described by spec
// §4.7. One instance serves every tenant and object type; state is keyed
// by (tenant, object type) throughout.
//
// Concurrency policy: "only one sync pass per (tenant, object-type) in
// flight" is implemented by coalescing concurrent callers onto a shared
// in-flight pass via singleflight.Group, rather than rejecting the
// later callers outright — each caller observes the one pass's result.
type Synchroniser struct {
	client     Client
	local      LocalStore
	mappings   map[ObjectType]ObjectMapping
	transforms *TransformRegistry
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time

	sg singleflight.Group

	mu                sync.Mutex
	syncRecords       map[string]map[string]*SyncRecord // key -> localID -> record
	dlq               map[string]DLQEntry                // key:localID -> entry
	conflicts         map[string]ConflictEntry           // key:localID -> entry
	lastSync          map[string]time.Time               // key -> last successful sync time
	lastOutcome       map[string]string                  // key -> "completed" | "failed"
	inProgress        map[string]bool                    // key -> pass running
	latestRemoteSeen  map[string]time.Time                // key -> newest observed remote ModifiedAt
	debounceTimers    map[string]*time.Timer
}

func key(tenantID string, ot ObjectType) string {
	return tenantID + "|" + string(ot)
}

// NewSynchroniser wires a sync engine against the given remote Client and
// LocalStore, with one ObjectMapping per syncable object type.
func NewSynchroniser(client Client, local LocalStore, mappings []ObjectMapping, cfg Config, logger *slog.Logger) *Synchroniser {
	if logger == nil {
		logger = slog.Default()
	}
	mm := make(map[ObjectType]ObjectMapping, len(mappings))
	for _, m := range mappings {
		mm[m.ObjectType] = m
	}
	return &Synchroniser{
		client:           client,
		local:            local,
		mappings:         mm,
		transforms:       NewTransformRegistry(),
		cfg:              cfg,
		logger:           logger.With("component", "crmsync"),
		now:              time.Now,
		syncRecords:      make(map[string]map[string]*SyncRecord),
		dlq:              make(map[string]DLQEntry),
		conflicts:        make(map[string]ConflictEntry),
		lastSync:         make(map[string]time.Time),
		lastOutcome:      make(map[string]string),
		inProgress:       make(map[string]bool),
		latestRemoteSeen: make(map[string]time.Time),
		debounceTimers:   make(map[string]*time.Timer),
	}
}

// Transforms exposes the transform registry so callers can register
// deployment-specific transforms before a mapping references them.
func (s *Synchroniser) Transforms() *TransformRegistry { return s.transforms }

// SyncFull runs a full bidirectional sync: enumerate every local and
// remote record, pair by stored sync record, and sync each pair.
func (s *Synchroniser) SyncFull(ctx context.Context, tenantID string, ot ObjectType) (SyncResult, error) {
	return s.run(ctx, tenantID, ot, ModeFull)
}

// SyncIncremental restricts both enumerations to records modified since
// the last successful sync timestamp for that object type.
func (s *Synchroniser) SyncIncremental(ctx context.Context, tenantID string, ot ObjectType) (SyncResult, error) {
	return s.run(ctx, tenantID, ot, ModeIncremental)
}

func (s *Synchroniser) run(ctx context.Context, tenantID string, ot ObjectType, mode Mode) (SyncResult, error) {
	k := key(tenantID, ot)
	v, err, _ := s.sg.Do(k, func() (any, error) {
		s.mu.Lock()
		s.inProgress[k] = true
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.inProgress[k] = false
			s.mu.Unlock()
		}()

		res := s.performSync(ctx, tenantID, ot, mode)

		s.mu.Lock()
		if res.Status == "completed" {
			s.lastSync[k] = res.FinishedAt
		}
		s.lastOutcome[k] = res.Status
		s.mu.Unlock()

		return res, nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	result := v.(SyncResult)
	if result.Status == "failed" {
		return result, fmt.Errorf("%w: %s", convotypes.ErrSyncFailure, result.Error)
	}
	return result, nil
}

func (s *Synchroniser) performSync(ctx context.Context, tenantID string, ot ObjectType, mode Mode) SyncResult {
	started := s.now()
	res := SyncResult{TenantID: tenantID, ObjectType: ot, Mode: mode, StartedAt: started}

	var since time.Time
	if mode == ModeIncremental {
		s.mu.Lock()
		since = s.lastSync[key(tenantID, ot)]
		s.mu.Unlock()
	}

	var localRecords, remoteRecords []Record
	var err error
	if mode == ModeFull {
		localRecords, err = s.local.FetchAll(ctx, ot)
		if err == nil {
			remoteRecords, err = s.client.FetchAll(ctx, ot)
		}
	} else {
		localRecords, err = s.local.FetchChangedSince(ctx, ot, since)
		if err == nil {
			remoteRecords, err = s.client.FetchChangedSince(ctx, ot, since)
		}
	}
	if err != nil {
		res.Status = "failed"
		res.Error = err.Error()
		res.FinishedAt = s.now()
		s.logger.Error("crm sync enumeration failed", "tenant", tenantID, "object_type", ot, "mode", mode, "error", err)
		return res
	}

	remoteByID := make(map[string]Record, len(remoteRecords))
	for _, r := range remoteRecords {
		remoteByID[r.ID] = r
		s.observeRemoteModified(tenantID, ot, r.ModifiedAt)
	}

	matchedRemote := make(map[string]bool, len(localRecords))
	for _, local := range localRecords {
		res.TotalProcessed++
		remote, hasRemote := remoteByID[local.RemoteID]
		if hasRemote {
			matchedRemote[local.RemoteID] = true
		}
		conflicted, err := s.syncSingleRecord(ctx, tenantID, ot, local, remote, hasRemote)
		if conflicted {
			res.Conflicts++
		}
		if err != nil {
			res.Failed++
			s.logger.Error("crm sync record failed", "tenant", tenantID, "object_type", ot, "local_id", local.ID, "error", err)
			continue
		}
		res.Successful++
	}

	for _, remote := range remoteRecords {
		if matchedRemote[remote.ID] {
			continue
		}
		res.TotalProcessed++
		if err := s.pullFromRemote(ctx, tenantID, ot, remote, ActionCreateLocal); err != nil {
			res.Failed++
			s.logger.Error("crm sync remote-only pull failed", "tenant", tenantID, "object_type", ot, "remote_id", remote.ID, "error", err)
			continue
		}
		res.Successful++
	}

	res.Status = "completed"
	res.FinishedAt = s.now()
	return res
}

// syncSingleRecord mirrors SalesforceSyncEngine._sync_single_record: if a
// matching remote record exists, resolve conflicts; otherwise push the
// local-only record. Errors are parked in the dead-letter queue rather
// than propagated, so one bad record never aborts the pass.
func (s *Synchroniser) syncSingleRecord(ctx context.Context, tenantID string, ot ObjectType, local Record, remote Record, hasRemote bool) (conflicted bool, err error) {
	if hasRemote {
		conflicted, err = s.resolveConflict(ctx, tenantID, ot, local, remote)
	} else {
		_, err = s.pushToRemote(ctx, tenantID, ot, local)
	}
	if err != nil {
		s.recordFailure(tenantID, ot, local, err)
	}
	return conflicted, err
}

func (s *Synchroniser) resolveConflict(ctx context.Context, tenantID string, ot ObjectType, local, remote Record) (conflicted bool, err error) {
	k := key(tenantID, ot)
	s.mu.Lock()
	sr := s.getOrCreateSyncRecordLocked(k, ot, local.ID)
	lastSync := sr.LastSyncTime
	s.mu.Unlock()

	if s.hasConflict(local.ModifiedAt, remote.ModifiedAt, lastSync) {
		strategy := s.strategyFor(ot)
		s.logger.Warn("crm sync conflict detected", "tenant", tenantID, "object_type", ot, "local_id", local.ID, "strategy", strategy)

		switch strategy {
		case StrategyLastWriteWins:
			err = s.resolveLastWriteWins(ctx, tenantID, ot, local, remote)
		case StrategyMerge:
			err = s.resolveMerge(ctx, tenantID, ot, local, remote)
		default:
			s.flagManualResolution(tenantID, ot, local, remote)
		}
		s.updateSyncState(tenantID, ot, local.ID, remote.ID, StatusConflict)
		return true, err
	}

	s.updateSyncState(tenantID, ot, local.ID, remote.ID, StatusSynced)
	return false, nil
}

// hasConflict mirrors _has_conflict: both sides changed after the last
// successful sync.
func (s *Synchroniser) hasConflict(localModified, remoteModified, lastSync time.Time) bool {
	if lastSync.IsZero() {
		return false
	}
	if localModified.IsZero() || remoteModified.IsZero() {
		return false
	}
	return localModified.After(lastSync) && remoteModified.After(lastSync)
}

func (s *Synchroniser) resolveLastWriteWins(ctx context.Context, tenantID string, ot ObjectType, local, remote Record) error {
	if !local.ModifiedAt.Before(remote.ModifiedAt) {
		_, err := s.pushToRemote(ctx, tenantID, ot, local)
		return err
	}
	return s.pullFromRemote(ctx, tenantID, ot, remote, ActionPull)
}

// resolveMerge builds a merged field set: remote values are kept, and
// local values fill in fields the remote record lacks or leaves empty.
// Record carries no per-field timestamps, so the merged record is then
// always propagated via last-write-wins: when local is at least as new,
// the merged fields are pushed; when remote is newer, the remote record
// is pulled as it is.
func (s *Synchroniser) resolveMerge(ctx context.Context, tenantID string, ot ObjectType, local, remote Record) error {
	merged := make(map[string]any, len(local.Fields)+len(remote.Fields))
	for k, v := range remote.Fields {
		merged[k] = v
	}
	for k, v := range local.Fields {
		if existing, ok := merged[k]; !ok || isEmptyValue(existing) {
			merged[k] = v
		}
	}
	local.Fields = merged
	return s.resolveLastWriteWins(ctx, tenantID, ot, local, remote)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func (s *Synchroniser) flagManualResolution(tenantID string, ot ObjectType, local, remote Record) {
	s.logger.Warn("crm sync manual conflict resolution required", "tenant", tenantID, "object_type", ot, "local_id", local.ID)
	s.mu.Lock()
	s.conflicts[key(tenantID, ot)+":"+local.ID] = ConflictEntry{
		TenantID:   tenantID,
		ObjectType: ot,
		Local:      local,
		Remote:     remote,
		CreatedAt:  s.now(),
	}
	s.mu.Unlock()
}

func (s *Synchroniser) pushToRemote(ctx context.Context, tenantID string, ot ObjectType, local Record) (string, error) {
	payload, err := s.transformToRemote(ot, local)
	if err != nil {
		return "", fmt.Errorf("transform to remote: %w", err)
	}

	var remoteID string
	action := ActionCreateRemote
	if local.RemoteID != "" {
		remoteID = local.RemoteID
		action = ActionPush
		err = s.client.Update(ctx, ot, remoteID, payload)
	} else {
		remoteID, err = s.client.Create(ctx, ot, payload)
	}
	if err != nil {
		return "", fmt.Errorf("push to remote: %w", err)
	}

	s.updateSyncState(tenantID, ot, local.ID, remoteID, StatusSynced)
	s.logger.Info("crm record synced", "tenant", tenantID, "object_type", ot, "local_id", local.ID, "remote_id", remoteID, "action", action)
	return remoteID, nil
}

func (s *Synchroniser) pullFromRemote(ctx context.Context, tenantID string, ot ObjectType, remote Record, action Action) error {
	local, err := s.transformFromRemote(ot, remote)
	if err != nil {
		return fmt.Errorf("transform from remote: %w", err)
	}
	if err := s.local.Upsert(ctx, ot, local); err != nil {
		return fmt.Errorf("pull from remote: %w", err)
	}
	s.updateSyncState(tenantID, ot, local.ID, remote.ID, StatusSynced)
	s.logger.Info("crm record synced", "tenant", tenantID, "object_type", ot, "remote_id", remote.ID, "action", action)
	return nil
}

// transformToRemote applies the object's field mapping and any named
// transforms, local field -> remote field.
func (s *Synchroniser) transformToRemote(ot ObjectType, local Record) (Record, error) {
	mapping, ok := s.mappings[ot]
	if !ok {
		return local, nil
	}
	out := Record{ID: local.RemoteID, ModifiedAt: s.now(), Fields: make(map[string]any, len(mapping.Fields))}
	for _, f := range mapping.Fields {
		v, present := local.Fields[f.LocalField]
		if !present {
			if f.Required {
				return Record{}, fmt.Errorf("crmsync: required field %q missing on local record %s", f.LocalField, local.ID)
			}
			continue
		}
		tv, err := s.transforms.Apply(f.Transform, v)
		if err != nil {
			return Record{}, err
		}
		out.Fields[f.RemoteField] = tv
	}
	return out, nil
}

// transformFromRemote applies the inverse mapping, remote field -> local
// field.
func (s *Synchroniser) transformFromRemote(ot ObjectType, remote Record) (Record, error) {
	out := Record{ID: remote.ID, RemoteID: remote.ID, ModifiedAt: s.now(), Fields: make(map[string]any)}
	mapping, ok := s.mappings[ot]
	if !ok {
		out.Fields = remote.Fields
		return out, nil
	}
	for _, f := range mapping.Fields {
		v, present := remote.Fields[f.RemoteField]
		if !present {
			if f.Required {
				return Record{}, fmt.Errorf("crmsync: required field %q missing on remote record %s", f.RemoteField, remote.ID)
			}
			continue
		}
		out.Fields[f.LocalField] = v
	}
	return out, nil
}

func (s *Synchroniser) strategyFor(ot ObjectType) ConflictStrategy {
	if mapping, ok := s.mappings[ot]; ok && mapping.Strategy != "" {
		return mapping.Strategy
	}
	if s.cfg.DefaultStrategy != "" {
		return s.cfg.DefaultStrategy
	}
	return StrategyLastWriteWins
}

func (s *Synchroniser) getOrCreateSyncRecordLocked(k string, ot ObjectType, localID string) *SyncRecord {
	m, ok := s.syncRecords[k]
	if !ok {
		m = make(map[string]*SyncRecord)
		s.syncRecords[k] = m
	}
	sr, ok := m[localID]
	if !ok {
		sr = &SyncRecord{LocalID: localID, ObjectType: ot, Direction: DirectionBidirectional, Status: StatusPending}
		m[localID] = sr
	}
	return sr
}

func (s *Synchroniser) updateSyncState(tenantID string, ot ObjectType, localID, remoteID string, status Status) {
	k := key(tenantID, ot)
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.getOrCreateSyncRecordLocked(k, ot, localID)
	sr.RemoteID = remoteID
	sr.Status = status
	sr.LastSyncTime = now
	sr.ConflictStrategy = s.strategyFor(ot)
	if status != StatusFailed {
		sr.RetryCount = 0
		sr.LastError = ""
	}
}

func (s *Synchroniser) recordFailure(tenantID string, ot ObjectType, local Record, syncErr error) {
	k := key(tenantID, ot)
	s.mu.Lock()
	sr := s.getOrCreateSyncRecordLocked(k, ot, local.ID)
	sr.Status = StatusFailed
	sr.LastError = syncErr.Error()
	sr.RetryCount++
	retries := sr.RetryCount
	s.mu.Unlock()

	if retries > s.cfg.MaxRetries {
		s.addToDeadLetterQueue(tenantID, ot, local, syncErr.Error(), retries)
	}
}

// addToDeadLetterQueue mirrors _add_to_dead_letter_queue: the entry is
// retained for DeadLetterTTL and externally drainable via DrainDeadLetterQueue.
func (s *Synchroniser) addToDeadLetterQueue(tenantID string, ot ObjectType, rec Record, errText string, retryCount int) {
	entry := DLQEntry{
		TenantID:   tenantID,
		ObjectType: ot,
		Record:     rec,
		ErrorText:  errText,
		RetryCount: retryCount,
		CreatedAt:  s.now(),
	}
	s.mu.Lock()
	s.dlq[key(tenantID, ot)+":"+rec.ID] = entry
	s.mu.Unlock()
	s.logger.Error("crm record dead-lettered", "tenant", tenantID, "object_type", ot, "local_id", rec.ID, "error", errText, "retry_count", retryCount)
}

func (s *Synchroniser) observeRemoteModified(tenantID string, ot ObjectType, modifiedAt time.Time) {
	if modifiedAt.IsZero() {
		return
	}
	k := key(tenantID, ot)
	s.mu.Lock()
	if modifiedAt.After(s.latestRemoteSeen[k]) {
		s.latestRemoteSeen[k] = modifiedAt
	}
	s.mu.Unlock()
}

// GetSyncLag returns now minus the newest remote modification time this
// synchroniser has observed for (tenantID, ot), per spec §4.7 "Health".
func (s *Synchroniser) GetSyncLag(tenantID string, ot ObjectType) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest, ok := s.latestRemoteSeen[key(tenantID, ot)]
	if !ok {
		return 0
	}
	lag := s.now().Sub(latest)
	if lag < 0 {
		return 0
	}
	return lag
}

// DrainDeadLetterQueue removes and returns every DLQ entry for
// (tenantID, ot).
func (s *Synchroniser) DrainDeadLetterQueue(tenantID string, ot ObjectType) []DLQEntry {
	prefix := key(tenantID, ot) + ":"
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DLQEntry
	for k, e := range s.dlq {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
			delete(s.dlq, k)
		}
	}
	return out
}

// DrainConflictQueue removes and returns every queued conflict for
// (tenantID, ot).
func (s *Synchroniser) DrainConflictQueue(tenantID string, ot ObjectType) []ConflictEntry {
	prefix := key(tenantID, ot) + ":"
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ConflictEntry
	for k, e := range s.conflicts {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
			delete(s.conflicts, k)
		}
	}
	return out
}

// CleanupExpired sweeps the DLQ and conflict queue, dropping entries
// older than their configured TTL. It does not drain open (un-expired)
// entries — use DrainDeadLetterQueue / DrainConflictQueue for that.
func (s *Synchroniser) CleanupExpired() (removedDLQ, removedConflicts int) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.dlq {
		if now.Sub(e.CreatedAt) > s.cfg.DeadLetterTTL {
			delete(s.dlq, k)
			removedDLQ++
		}
	}
	for k, e := range s.conflicts {
		if now.Sub(e.CreatedAt) > s.cfg.ConflictQueueTTL {
			delete(s.conflicts, k)
			removedConflicts++
		}
	}
	return removedDLQ, removedConflicts
}

// GetSyncStatus reports synced/failed/conflict counts and queue sizes
// for (tenantID, ot), per spec §4.7 "Health" / original's get_sync_status.
func (s *Synchroniser) GetSyncStatus(tenantID string, ot ObjectType) TypeHealth {
	k := key(tenantID, ot)
	s.mu.Lock()
	defer s.mu.Unlock()

	dlqSize, conflictSize := 0, 0
	prefix := k + ":"
	for key := range s.dlq {
		if strings.HasPrefix(key, prefix) {
			dlqSize++
		}
	}
	for key := range s.conflicts {
		if strings.HasPrefix(key, prefix) {
			conflictSize++
		}
	}

	return TypeHealth{
		ObjectType:   ot,
		SyncLag:      s.syncLagLocked(k),
		LastOutcome:  s.lastOutcome[k],
		DLQSize:      dlqSize,
		ConflictSize: conflictSize,
	}
}

func (s *Synchroniser) syncLagLocked(k string) time.Duration {
	latest, ok := s.latestRemoteSeen[k]
	if !ok {
		return 0
	}
	lag := s.now().Sub(latest)
	if lag < 0 {
		return 0
	}
	return lag
}

// HealthCheck reports synchroniser-wide health for tenantID across every
// registered object type, combining the remote client's own health check
// with per-type sync lag and in-flight status (original's health_check).
func (s *Synchroniser) HealthCheck(ctx context.Context, tenantID string) (Health, error) {
	clientHealthy, detail, err := s.client.Health(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("crm client health check: %w", err)
	}

	types := make(map[ObjectType]TypeHealth, len(s.mappings))
	inProgress := make(map[string]bool, len(s.mappings))
	excessiveLag := false

	for ot := range s.mappings {
		k := key(tenantID, ot)
		th := s.GetSyncStatus(tenantID, ot)
		types[ot] = th

		s.mu.Lock()
		inProgress[string(ot)] = s.inProgress[k]
		s.mu.Unlock()

		if s.cfg.LagAlarmThreshold > 0 && th.SyncLag > s.cfg.LagAlarmThreshold {
			excessiveLag = true
		}
	}

	status := "healthy"
	if !clientHealthy || excessiveLag {
		status = "degraded"
	}
	s.logger.Debug("crm client health", "healthy", clientHealthy, "detail", detail)

	return Health{
		Status:         status,
		Types:          types,
		SyncInProgress: inProgress,
		Timestamp:      s.now(),
	}, nil
}
