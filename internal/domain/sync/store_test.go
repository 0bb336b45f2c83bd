package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	gosync "sync"
	"time"

	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory Store for exercising the sync manager.
type memStore struct {
	mu        gosync.Mutex
	records   map[record.Table]map[string]*record.Record
	items     []*queue.Item
	dropped   []*queue.Item
	seq       int64
	meta      map[record.Table]*Metadata
	conflicts map[string]*Conflict
	failSave  error
}

func newMemStore() *memStore {
	return &memStore{
		records:   map[record.Table]map[string]*record.Record{},
		meta:      map[record.Table]*Metadata{},
		conflicts: map[string]*Conflict{},
	}
}

func (m *memStore) GetRecord(_ context.Context, table record.Table, id string) (*record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[table][id]; ok {
		return rec.Clone(), nil
	}
	return nil, record.ErrNotFound
}

func (m *memStore) GetRecordByServerID(_ context.Context, table record.Table, serverID string) (*record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records[table] {
		if rec.ServerID != nil && *rec.ServerID == serverID {
			return rec.Clone(), nil
		}
	}
	return nil, record.ErrNotFound
}

func (m *memStore) ListRecords(_ context.Context, table record.Table, status *record.Status) ([]*record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*record.Record
	for _, rec := range m.records[table] {
		if status == nil || rec.Status == *status {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SaveRecord(_ context.Context, rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if m.records[rec.Table] == nil {
		m.records[rec.Table] = map[string]*record.Record{}
	}
	m.records[rec.Table][rec.ID] = rec.Clone()
	return nil
}

func (m *memStore) DeleteRecord(_ context.Context, table record.Table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[table][id]; !ok {
		return record.ErrNotFound
	}
	delete(m.records[table], id)
	return nil
}

func (m *memStore) CountRecords(_ context.Context, table record.Table) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[table]), nil
}

func (m *memStore) CountPending(_ context.Context, table record.Table) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records[table] {
		if rec.Status == record.StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Enqueue(_ context.Context, item *queue.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	item.Seq = m.seq
	c := *item
	m.items = append(m.items, &c)
	return nil
}

func (m *memStore) DequeueOldest(_ context.Context, table record.Table) (*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Table == table {
			c := *item
			return &c, nil
		}
	}
	return nil, queue.ErrEmpty
}

func (m *memStore) ListQueue(_ context.Context, table record.Table) ([]*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*queue.Item
	for _, item := range m.items {
		if item.Table == table {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) MarkFailed(_ context.Context, seq int64, cause string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Seq == seq {
			item.RetryCount++
			item.LastError = &cause
			return item.RetryCount, nil
		}
	}
	return 0, queue.ErrEmpty
}

func (m *memStore) take(seq int64) *queue.Item {
	for i, item := range m.items {
		if item.Seq == seq {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return item
		}
	}
	return nil
}

func (m *memStore) RemoveFromQueue(_ context.Context, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.take(seq)
	return nil
}

func (m *memStore) RemoveQueuedFor(_ context.Context, table record.Table, recordID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	n := 0
	for _, item := range m.items {
		if item.Table == table && item.RecordID == recordID {
			n++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return n, nil
}

func (m *memStore) CountQueue(_ context.Context, table record.Table) (int, error) {
	items, _ := m.ListQueue(context.Background(), table)
	return len(items), nil
}

func (m *memStore) DropFromQueue(_ context.Context, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item := m.take(seq); item != nil {
		m.dropped = append(m.dropped, item)
	}
	return nil
}

func (m *memStore) ListDropped(_ context.Context) ([]*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*queue.Item{}, m.dropped...), nil
}

func (m *memStore) DiscardDropped(_ context.Context, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.dropped {
		if item.Seq == seq {
			m.dropped = append(m.dropped[:i], m.dropped[i+1:]...)
			return nil
		}
	}
	return queue.ErrEmpty
}

func (m *memStore) GetSyncMetadata(_ context.Context, table record.Table) (*Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta, ok := m.meta[table]; ok {
		c := *meta
		return &c, nil
	}
	return nil, ErrMetadataNotFound
}

func (m *memStore) SetSyncMetadata(_ context.Context, meta *Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *meta
	m.meta[meta.Table] = &c
	return nil
}

func (m *memStore) ListSyncMetadata(_ context.Context) ([]*Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Metadata
	for _, t := range record.Tables {
		if meta, ok := m.meta[t]; ok {
			c := *meta
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = map[record.Table]map[string]*record.Record{}
	m.items = nil
	m.dropped = nil
	m.meta = map[record.Table]*Metadata{}
	m.conflicts = map[string]*Conflict{}
	return nil
}

func (m *memStore) SaveConflict(_ context.Context, c *Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Local = c.Local.Clone()
	cp.ResolvedAt = nil
	cp.Resolution = ""
	m.conflicts[c.ID] = &cp
	return nil
}

func (m *memStore) GetConflict(_ context.Context, id string) (*Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, ErrConflictNotFound
	}
	cp := *c
	cp.Local = c.Local.Clone()
	return &cp, nil
}

func (m *memStore) ListConflicts(_ context.Context) ([]*Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Conflict{}
	for _, c := range m.conflicts {
		if c.ResolvedAt == nil {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) MarkConflictResolved(_ context.Context, id string, strategy Strategy, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return ErrConflictNotFound
	}
	c.ResolvedAt = &at
	c.Resolution = strategy
	return nil
}

func (m *memStore) PruneResolvedConflicts(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.conflicts {
		if c.ResolvedAt != nil && c.ResolvedAt.Before(before) {
			delete(m.conflicts, id)
			n++
		}
	}
	return n, nil
}

// MockRemote is a testify double for Remote.
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRemote) Pull(ctx context.Context, table record.Table, since string) (*PullResult, error) {
	args := m.Called(ctx, table, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PullResult), args.Error(1)
}

func (m *MockRemote) Create(ctx context.Context, table record.Table, clientID string, payload json.RawMessage) (*RemoteRecord, error) {
	args := m.Called(ctx, table, clientID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RemoteRecord), args.Error(1)
}

func (m *MockRemote) Update(ctx context.Context, table record.Table, serverID string, payload json.RawMessage, baseVersion int64) (*RemoteRecord, error) {
	args := m.Called(ctx, table, serverID, payload, baseVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RemoteRecord), args.Error(1)
}

func (m *MockRemote) Delete(ctx context.Context, table record.Table, serverID string) error {
	args := m.Called(ctx, table, serverID)
	return args.Error(0)
}

var errNetDown = errors.New("connection refused")
