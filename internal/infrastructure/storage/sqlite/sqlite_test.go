package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
	"notekeeper/internal/domain/sync"
)

var (
	_ sync.Store         = (*Storage)(nil)
	_ history.Repository = (*Storage)(nil)
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "cache.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func note(t *testing.T, id, title string) *record.Record {
	t.Helper()
	payload, err := record.Encode(record.Note{Title: title})
	require.NoError(t, err)
	return &record.Record{
		ID:                  id,
		Table:               record.TableNotes,
		Payload:             payload,
		Status:              record.StatusPending,
		LastModifiedLocally: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRecordRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	a := note(t, "a", "first")
	require.NoError(t, s.SaveRecord(ctx, a))

	got, err := s.GetRecord(ctx, record.TableNotes, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Nil(t, got.ServerID)
	assert.JSONEq(t, string(a.Payload), string(got.Payload))
	assert.True(t, a.LastModifiedLocally.Equal(got.LastModifiedLocally))

	t.Run("upsert marks synced", func(t *testing.T) {
		got.MarkSynced("srv-a", 3)
		require.NoError(t, s.SaveRecord(ctx, got))

		again, err := s.GetRecordByServerID(ctx, record.TableNotes, "srv-a")
		require.NoError(t, err)
		assert.Equal(t, record.StatusSynced, again.Status)
		assert.Equal(t, int64(3), again.Version)
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		bad := note(t, "b", "x")
		bad.Status = record.StatusSynced
		assert.ErrorIs(t, s.SaveRecord(ctx, bad), record.ErrInvalidRecord)
	})

	t.Run("list and counts", func(t *testing.T) {
		require.NoError(t, s.SaveRecord(ctx, note(t, "c", "third")))
		all, err := s.ListRecords(ctx, record.TableNotes, nil)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].ID)

		pending := record.StatusPending
		only, err := s.ListRecords(ctx, record.TableNotes, &pending)
		require.NoError(t, err)
		require.Len(t, only, 1)
		assert.Equal(t, "c", only[0].ID)

		n, err := s.CountRecords(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = s.CountPending(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		none, err := s.ListRecords(ctx, record.TablePeople, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetRecord(ctx, record.TableTodos, "a")
		assert.ErrorIs(t, err, record.ErrNotFound)
		_, err = s.GetRecordByServerID(ctx, record.TableNotes, "nope")
		assert.ErrorIs(t, err, record.ErrNotFound)
		assert.ErrorIs(t, s.DeleteRecord(ctx, record.TableNotes, "nope"), record.ErrNotFound)
	})

	require.NoError(t, s.DeleteRecord(ctx, record.TableNotes, "c"))
	_, err = s.GetRecord(ctx, record.TableNotes, "c")
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestQueueRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	enqueue := func(op queue.Operation, id string) *queue.Item {
		var (
			item *queue.Item
			err  error
		)
		if op == queue.OpDelete {
			item, err = queue.NewDeleteItem(record.TableNotes, id, nil)
		} else {
			item, err = queue.NewItem(op, record.TableNotes, id, note(t, id, id).Payload)
		}
		require.NoError(t, err)
		require.NoError(t, s.Enqueue(ctx, item))
		return item
	}

	_, err := s.DequeueOldest(ctx, record.TableNotes)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	first := enqueue(queue.OpCreate, "a")
	second := enqueue(queue.OpUpdate, "a")
	third := enqueue(queue.OpDelete, "b")
	assert.Less(t, first.Seq, second.Seq)
	assert.Less(t, second.Seq, third.Seq)

	assert.ErrorIs(t, s.Enqueue(ctx, &queue.Item{Operation: queue.OpCreate, Table: record.TableNotes}), queue.ErrInvalidItem)

	t.Run("fifo peek", func(t *testing.T) {
		head, err := s.DequeueOldest(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, first.Seq, head.Seq)

		head, err = s.DequeueOldest(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, first.Seq, head.Seq, "peek must not remove")
	})

	t.Run("mark failed", func(t *testing.T) {
		n, err := s.MarkFailed(ctx, first.Seq, "timeout")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = s.MarkFailed(ctx, first.Seq, "timeout again")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		items, err := s.ListQueue(ctx, record.TableNotes)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, 2, items[0].RetryCount)
		require.NotNil(t, items[0].LastError)
		assert.Equal(t, "timeout again", *items[0].LastError)

		_, err = s.MarkFailed(ctx, 9999, "x")
		assert.ErrorIs(t, err, queue.ErrEmpty)
	})

	t.Run("drop keeps a dead letter", func(t *testing.T) {
		require.NoError(t, s.DropFromQueue(ctx, first.Seq))

		head, err := s.DequeueOldest(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, second.Seq, head.Seq)

		dropped, err := s.ListDropped(ctx)
		require.NoError(t, err)
		require.Len(t, dropped, 1)
		assert.Equal(t, first.Seq, dropped[0].Seq)

		n, err := s.CountQueue(ctx, record.TableNotes)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, s.DiscardDropped(ctx, first.Seq))
		assert.ErrorIs(t, s.DiscardDropped(ctx, first.Seq), queue.ErrEmpty)
		assert.ErrorIs(t, s.DiscardDropped(ctx, second.Seq), queue.ErrEmpty, "live items are not discardable")
	})

	t.Run("remove", func(t *testing.T) {
		n, err := s.RemoveQueuedFor(ctx, record.TableNotes, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, s.RemoveFromQueue(ctx, third.Seq))
		_, err = s.DequeueOldest(ctx, record.TableNotes)
		assert.ErrorIs(t, err, queue.ErrEmpty)
	})
}

func TestMetadataRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.GetSyncMetadata(ctx, record.TableNotes)
	assert.ErrorIs(t, err, sync.ErrMetadataNotFound)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetSyncMetadata(ctx, &sync.Metadata{Table: record.TableTodos, LastSync: at, SyncToken: "t1"}))
	require.NoError(t, s.SetSyncMetadata(ctx, &sync.Metadata{Table: record.TableNotes, LastSync: at, SyncToken: "n1", TotalRecords: 4, PendingChanges: 1}))
	require.NoError(t, s.SetSyncMetadata(ctx, &sync.Metadata{Table: record.TableNotes, LastSync: at, SyncToken: "n2", TotalRecords: 5}))

	meta, err := s.GetSyncMetadata(ctx, record.TableNotes)
	require.NoError(t, err)
	assert.Equal(t, "n2", meta.SyncToken)
	assert.Equal(t, 5, meta.TotalRecords)
	assert.Equal(t, 0, meta.PendingChanges)
	assert.True(t, at.Equal(meta.LastSync))

	all, err := s.ListSyncMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, record.TableNotes, all[0].Table)
	assert.Equal(t, record.TableTodos, all[1].Table)
}

func TestConflictRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	local := note(t, "a", "mine")
	c := &sync.Conflict{
		ID:         "a",
		Table:      record.TableNotes,
		Local:      local,
		Remote:     sync.RemoteRecord{ID: "srv-a", Table: record.TableNotes, Payload: json.RawMessage(`{"title":"theirs"}`), Version: 2},
		Reason:     "both changed",
		DetectedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveConflict(ctx, c))

	got, err := s.GetConflict(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "mine", mustNote(t, got.Local.Payload).Title)
	assert.Equal(t, int64(2), got.Remote.Version)
	assert.Nil(t, got.ResolvedAt)

	_, err = s.GetConflict(ctx, "zzz")
	assert.ErrorIs(t, err, sync.ErrConflictNotFound)

	resolvedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkConflictResolved(ctx, "a", sync.KeepRemote, resolvedAt))
	assert.ErrorIs(t, s.MarkConflictResolved(ctx, "zzz", sync.KeepRemote, resolvedAt), sync.ErrConflictNotFound)

	open, err := s.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	got, err = s.GetConflict(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, sync.KeepRemote, got.Resolution)

	t.Run("save reopens", func(t *testing.T) {
		require.NoError(t, s.SaveConflict(ctx, c))
		open, err := s.ListConflicts(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Nil(t, open[0].ResolvedAt)
		assert.Empty(t, open[0].Resolution)
	})

	t.Run("prune only old tombstones", func(t *testing.T) {
		require.NoError(t, s.MarkConflictResolved(ctx, "a", sync.KeepLocal, resolvedAt))

		n, err := s.PruneResolvedConflicts(ctx, resolvedAt.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = s.PruneResolvedConflicts(ctx, resolvedAt.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = s.GetConflict(ctx, "a")
		assert.ErrorIs(t, err, sync.ErrConflictNotFound)
	})
}

func TestVersionRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for _, content := range []string{"v1", "v2", "v3"} {
		v := &history.Version{NoteID: "n1", Content: content, Author: "ada"}
		require.NoError(t, s.AppendNoteVersion(ctx, v))
		assert.False(t, v.CreatedAt.IsZero())
	}
	other := &history.Version{NoteID: "n2", Content: "x"}
	require.NoError(t, s.AppendNoteVersion(ctx, other))
	assert.Equal(t, 1, other.Number)

	versions, err := s.ListNoteVersions(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{versions[0].Number, versions[1].Number, versions[2].Number})

	v, err := s.GetNoteVersion(ctx, "n1", 2)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.Content)
	assert.Equal(t, "ada", v.Author)

	_, err = s.GetNoteVersion(ctx, "n1", 4)
	assert.ErrorIs(t, err, history.ErrVersionNotFound)

	empty, err := s.ListNoteVersions(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.SaveRecord(ctx, note(t, "a", "x")))
	item, err := queue.NewDeleteItem(record.TableNotes, "a", nil)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(ctx, item))
	require.NoError(t, s.SetSyncMetadata(ctx, &sync.Metadata{Table: record.TableNotes, LastSync: time.Now()}))
	require.NoError(t, s.SaveConflict(ctx, &sync.Conflict{ID: "a", Table: record.TableNotes, DetectedAt: time.Now()}))
	require.NoError(t, s.AppendNoteVersion(ctx, &history.Version{NoteID: "a", Content: "x"}))

	require.NoError(t, s.Reset(ctx))

	n, err := s.CountRecords(ctx, record.TableNotes)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.CountQueue(ctx, record.TableNotes)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = s.GetSyncMetadata(ctx, record.TableNotes)
	assert.ErrorIs(t, err, sync.ErrMetadataNotFound)
	_, err = s.GetConflict(ctx, "a")
	assert.ErrorIs(t, err, sync.ErrConflictNotFound)

	versions, err := s.ListNoteVersions(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func mustNote(t *testing.T, raw json.RawMessage) record.Note {
	t.Helper()
	n, err := record.Decode[record.Note](raw)
	require.NoError(t, err)
	return n
}
