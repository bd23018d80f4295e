package crmsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu           sync.Mutex
	allRecords   []Record
	changed      []Record
	createErr    error
	createCalls  int
	updateCalls  int
	healthy      bool
	healthDetail string
	healthErr    error
}

func (f *fakeClient) FetchAll(ctx context.Context, ot ObjectType) ([]Record, error) {
	return f.allRecords, nil
}

func (f *fakeClient) FetchChangedSince(ctx context.Context, ot ObjectType, since time.Time) ([]Record, error) {
	return f.changed, nil
}

func (f *fakeClient) Create(ctx context.Context, ot ObjectType, rec Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "remote-" + rec.Fields["name"].(string), nil
}

func (f *fakeClient) Update(ctx context.Context, ot ObjectType, remoteID string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return nil
}

func (f *fakeClient) Health(ctx context.Context) (bool, string, error) {
	return f.healthy, f.healthDetail, f.healthErr
}

type fakeLocalStore struct {
	mu       sync.Mutex
	all      []Record
	changed  []Record
	upserted []Record
}

func (f *fakeLocalStore) FetchAll(ctx context.Context, ot ObjectType) ([]Record, error) {
	return f.all, nil
}

func (f *fakeLocalStore) FetchChangedSince(ctx context.Context, ot ObjectType, since time.Time) ([]Record, error) {
	return f.changed, nil
}

func (f *fakeLocalStore) Upsert(ctx context.Context, ot ObjectType, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, rec)
	return nil
}

func caseMapping() ObjectMapping {
	return ObjectMapping{
		ObjectType: "case",
		Fields: []FieldMapping{
			{LocalField: "name", RemoteField: "Name", Required: true},
			{LocalField: "status", RemoteField: "Status__c"},
		},
	}
}

func TestSynchroniser_SyncFull_PushesLocalOnlyRecord(t *testing.T) {
	client := &fakeClient{healthy: true}
	local := &fakeLocalStore{all: []Record{
		{ID: "loc-1", ModifiedAt: time.Now(), Fields: map[string]any{"name": "alice", "status": "open"}},
	}}
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, DefaultConfig(), nil)

	res, err := s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, client.createCalls)
}

func TestSynchroniser_SyncFull_PullsRemoteOnlyRecord(t *testing.T) {
	client := &fakeClient{healthy: true, allRecords: []Record{
		{ID: "rem-1", ModifiedAt: time.Now(), Fields: map[string]any{"Name": "bob", "Status__c": "closed"}},
	}}
	local := &fakeLocalStore{}
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, DefaultConfig(), nil)

	res, err := s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Successful)
	require.Len(t, local.upserted, 1)
	assert.Equal(t, "bob", local.upserted[0].Fields["name"])
}

func TestSynchroniser_ConflictResolvedLastWriteWins(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{healthy: true}
	local := &fakeLocalStore{}
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, DefaultConfig(), nil)
	s.now = func() time.Time { return t0 }

	// First pass: local-only record establishes a synced pairing.
	local.all = []Record{{ID: "loc-1", ModifiedAt: t0, Fields: map[string]any{"name": "alice", "status": "open"}}}
	_, err := s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)

	sr, ok := s.syncRecords[key("tenant-a", "case")]["loc-1"]
	require.True(t, ok)
	remoteID := sr.RemoteID

	// Second pass: both sides modified after the last sync time.
	t1 := t0.Add(1 * time.Hour)
	s.now = func() time.Time { return t1 }
	local.all[0].ModifiedAt = t1
	local.all[0].RemoteID = remoteID
	local.all[0].Fields["status"] = "local-update"
	client.allRecords = []Record{{ID: remoteID, ModifiedAt: t1.Add(-1 * time.Minute), Fields: map[string]any{"Name": "alice", "Status__c": "remote-update"}}}

	res, err := s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, 1, res.Successful)
	assert.GreaterOrEqual(t, client.updateCalls, 1) // local was newer -> pushed
}

func TestSynchroniser_ManualStrategyFlagsConflict(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mapping := caseMapping()
	mapping.Strategy = StrategyManual
	client := &fakeClient{healthy: true}
	local := &fakeLocalStore{all: []Record{{ID: "loc-1", ModifiedAt: t0, Fields: map[string]any{"name": "alice"}}}}
	s := NewSynchroniser(client, local, []ObjectMapping{mapping}, DefaultConfig(), nil)
	s.now = func() time.Time { return t0 }

	_, err := s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)
	remoteID := s.syncRecords[key("tenant-a", "case")]["loc-1"].RemoteID

	t1 := t0.Add(1 * time.Hour)
	s.now = func() time.Time { return t1 }
	local.all[0].ModifiedAt = t1
	local.all[0].RemoteID = remoteID
	client.allRecords = []Record{{ID: remoteID, ModifiedAt: t1, Fields: map[string]any{"Name": "alice"}}}

	_, err = s.SyncFull(context.Background(), "tenant-a", "case")
	require.NoError(t, err)

	entries := s.DrainConflictQueue("tenant-a", "case")
	require.Len(t, entries, 1)
	assert.Equal(t, "loc-1", entries[0].Local.ID)
}

func TestSynchroniser_DeadLetterQueueAfterRetryBudgetExceeded(t *testing.T) {
	client := &fakeClient{healthy: true, createErr: errors.New("boom")}
	local := &fakeLocalStore{all: []Record{{ID: "loc-1", ModifiedAt: time.Now(), Fields: map[string]any{"name": "alice"}}}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, cfg, nil)

	for i := 0; i < 3; i++ {
		_, _ = s.SyncFull(context.Background(), "tenant-a", "case")
	}

	entries := s.DrainDeadLetterQueue("tenant-a", "case")
	require.Len(t, entries, 1)
	assert.Equal(t, "loc-1", entries[0].Record.ID)
	assert.Greater(t, entries[0].RetryCount, cfg.MaxRetries)
}

func TestSynchroniser_RealtimeDebounceCoalescesEvents(t *testing.T) {
	client := &fakeClient{healthy: true}
	local := &fakeLocalStore{}
	cfg := DefaultConfig()
	cfg.RealtimeDebounce = 20 * time.Millisecond
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, cfg, nil)

	for i := 0; i < 3; i++ {
		s.HandleChangeEvent("tenant-a", ChangeEvent{ObjectType: "case", RemoteID: "rem-1", ObservedAt: time.Now()})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)

	// Exactly one debounced incremental pass ran; FetchChangedSince on the
	// fake client always returns an empty slice, so the assertion is on
	// there being no panic/race and the debounce timer having fired once,
	// observable via lastOutcome being populated.
	s.mu.Lock()
	outcome := s.lastOutcome[key("tenant-a", "case")]
	s.mu.Unlock()
	assert.Equal(t, "completed", outcome)
}

func TestSynchroniser_GetSyncStatusReportsQueueSizes(t *testing.T) {
	client := &fakeClient{healthy: true, createErr: errors.New("boom")}
	local := &fakeLocalStore{all: []Record{{ID: "loc-1", ModifiedAt: time.Now(), Fields: map[string]any{"name": "alice"}}}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, cfg, nil)

	_, _ = s.SyncFull(context.Background(), "tenant-a", "case")

	status := s.GetSyncStatus("tenant-a", "case")
	assert.Equal(t, 1, status.DLQSize)
}

func TestSynchroniser_HealthCheckReflectsClientHealth(t *testing.T) {
	client := &fakeClient{healthy: false, healthDetail: "degraded upstream"}
	local := &fakeLocalStore{}
	s := NewSynchroniser(client, local, []ObjectMapping{caseMapping()}, DefaultConfig(), nil)

	h, err := s.HealthCheck(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "degraded", h.Status)
}

func TestTransformRegistry_UnknownTransformFails(t *testing.T) {
	r := NewTransformRegistry()
	_, err := r.Apply("does_not_exist", "value")
	assert.Error(t, err)
}

func TestTransformRegistry_BuiltinUppercase(t *testing.T) {
	r := NewTransformRegistry()
	v, err := r.Apply("uppercase", "alice")
	require.NoError(t, err)
	assert.Equal(t, "ALICE", v)
}

func TestDecodeObjectMapping(t *testing.T) {
	raw := map[string]any{
		"object_type": "case",
		"fields": []any{
			map[string]any{"local_field": "name", "remote_field": "Name", "required": true},
		},
	}
	m, err := DecodeObjectMapping(raw)
	require.NoError(t, err)
	assert.Equal(t, ObjectType("case"), m.ObjectType)
	require.Len(t, m.Fields, 1)
	assert.Equal(t, "name", m.Fields[0].LocalField)
}
