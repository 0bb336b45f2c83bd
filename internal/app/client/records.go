package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
)

// RecordStore is the part of the local store the UI write path needs.
type RecordStore interface {
	record.Repository
	queue.Repository
}

// VersionRecorder snapshots note content after an edit.
type VersionRecorder interface {
	CreateVersion(ctx context.Context, noteID, content, description string) (*history.Version, error)
}

// RecordService applies UI edits to the local store. Writes always succeed
// locally. While offline, or while older edits of the same record are still
// queued, the change is also appended to the offline queue so it replays in
// order on the next sync pass.
type RecordService struct {
	store    RecordStore
	online   func() bool
	versions VersionRecorder
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewRecordService(store RecordStore, online func() bool, log *slog.Logger) *RecordService {
	if online == nil {
		online = func() bool { return true }
	}
	return &RecordService{
		store:  store,
		online: online,
		log:    log.With("component", "records"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// TrackVersions makes note creates and edits append to the version history.
func (s *RecordService) TrackVersions(v VersionRecorder) {
	s.versions = v
}

func (s *RecordService) Get(ctx context.Context, table record.Table, id string) (*record.Record, error) {
	return s.store.GetRecord(ctx, table, id)
}

func (s *RecordService) List(ctx context.Context, table record.Table, status *record.Status) ([]*record.Record, error) {
	return s.store.ListRecords(ctx, table, status)
}

func (s *RecordService) Create(ctx context.Context, table record.Table, payload json.RawMessage) (*record.Record, error) {
	if err := record.ValidatePayload(table, payload); err != nil {
		return nil, err
	}

	rec := &record.Record{
		ID:                  s.newID(),
		Table:               table,
		Payload:             payload,
		Status:              record.StatusPending,
		LastModifiedLocally: s.now(),
	}
	if err := s.store.SaveRecord(ctx, rec); err != nil {
		s.log.Error("failed to save record", "table", table, "error", err)
		return nil, fmt.Errorf("save record: %w", err)
	}

	if !s.online() {
		if err := s.enqueue(ctx, queue.OpCreate, rec); err != nil {
			return nil, err
		}
	}

	s.snapshot(ctx, rec, "Created")
	s.log.Debug("record created", "table", table, "id", rec.ID)
	return rec, nil
}

// Update replaces the payload of a record. A record in conflict keeps its
// status; the resolution decides what reaches the server.
func (s *RecordService) Update(ctx context.Context, table record.Table, id string, payload json.RawMessage) (*record.Record, error) {
	return s.update(ctx, table, id, payload, true)
}

func (s *RecordService) update(ctx context.Context, table record.Table, id string, payload json.RawMessage, snapshot bool) (*record.Record, error) {
	if err := record.ValidatePayload(table, payload); err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecord(ctx, table, id)
	if err != nil {
		return nil, err
	}

	rec.Payload = payload
	rec.LastModifiedLocally = s.now()
	if rec.Status != record.StatusConflict {
		rec.Status = record.StatusPending
	}
	if err := s.store.SaveRecord(ctx, rec); err != nil {
		s.log.Error("failed to save record", "table", table, "id", id, "error", err)
		return nil, fmt.Errorf("save record: %w", err)
	}

	if rec.Status == record.StatusPending {
		queued, err := s.hasQueued(ctx, table, id)
		if err != nil {
			return nil, err
		}
		if queued || !s.online() {
			if err := s.enqueue(ctx, queue.OpUpdate, rec); err != nil {
				return nil, err
			}
		}
	}

	if snapshot {
		s.snapshot(ctx, rec, "Edited")
	}
	return rec, nil
}

// Delete removes a record locally. Pending queue items for it are discarded
// and, when the server knows the record, a delete is queued in their place.
func (s *RecordService) Delete(ctx context.Context, table record.Table, id string) error {
	rec, err := s.store.GetRecord(ctx, table, id)
	if err != nil {
		return err
	}

	removed, err := s.store.RemoveQueuedFor(ctx, table, id)
	if err != nil {
		s.log.Error("failed to discard queued items", "table", table, "id", id, "error", err)
		return fmt.Errorf("discard queued items: %w", err)
	}

	if rec.ServerID != nil {
		item, err := queue.NewDeleteItem(table, id, rec.ServerID)
		if err != nil {
			return err
		}
		if err := s.store.Enqueue(ctx, item); err != nil {
			s.log.Error("failed to enqueue delete", "table", table, "id", id, "error", err)
			return fmt.Errorf("enqueue delete: %w", err)
		}
	}

	if err := s.store.DeleteRecord(ctx, table, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.log.Debug("record deleted", "table", table, "id", id, "discarded", removed)
	return nil
}

// SetNoteContent overwrites the content of a note without snapshotting it.
func (s *RecordService) SetNoteContent(ctx context.Context, noteID, content string) error {
	rec, err := s.store.GetRecord(ctx, record.TableNotes, noteID)
	if err != nil {
		return err
	}
	note, err := record.Decode[record.Note](rec.Payload)
	if err != nil {
		return err
	}
	note.Content = content
	payload, err := record.Encode(note)
	if err != nil {
		return err
	}

	_, err = s.update(ctx, record.TableNotes, noteID, payload, false)
	return err
}

func (s *RecordService) enqueue(ctx context.Context, op queue.Operation, rec *record.Record) error {
	item, err := queue.NewItem(op, rec.Table, rec.ID, rec.Payload)
	if err != nil {
		return err
	}
	if err := s.store.Enqueue(ctx, item); err != nil {
		s.log.Error("failed to enqueue change", "table", rec.Table, "id", rec.ID, "op", op, "error", err)
		return fmt.Errorf("enqueue %s: %w", op, err)
	}
	return nil
}

func (s *RecordService) hasQueued(ctx context.Context, table record.Table, id string) (bool, error) {
	items, err := s.store.ListQueue(ctx, table)
	if err != nil {
		return false, fmt.Errorf("list queue: %w", err)
	}
	for _, item := range items {
		if item.RecordID == id {
			return true, nil
		}
	}
	return false, nil
}

// snapshot failures are logged: the edit itself already succeeded.
func (s *RecordService) snapshot(ctx context.Context, rec *record.Record, description string) {
	if s.versions == nil || rec.Table != record.TableNotes {
		return
	}
	note, err := record.Decode[record.Note](rec.Payload)
	if err != nil {
		return
	}
	if _, err := s.versions.CreateVersion(ctx, rec.ID, note.Content, description); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to snapshot note", "id", rec.ID, "error", err)
	}
}
