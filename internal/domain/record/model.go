package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table names the record collection a cached record belongs to.
type Table string

const (
	TableNotes  Table = "notes"
	TablePeople Table = "people"
	TableTodos  Table = "todos"
)

// Tables lists every synchronized table in a stable order.
var Tables = []Table{TableNotes, TablePeople, TableTodos}

// ParseTable validates a table name coming from the UI or the wire.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableNotes, TablePeople, TableTodos:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
}

// Status is the per-record synchronization state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSynced   Status = "synced"
	StatusConflict Status = "conflict"
)

// Record is a locally cached note, person or todo.
type Record struct {
	ID                  string          `json:"id"`
	ServerID            *string         `json:"server_id,omitempty"`
	Table               Table           `json:"table"`
	Payload             json.RawMessage `json:"payload"`
	Status              Status          `json:"sync_status"`
	LastModifiedLocally time.Time       `json:"last_modified_locally"`
	Version             int64           `json:"version"`
}

// Validate checks structural invariants before the record is persisted.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if _, err := ParseTable(string(r.Table)); err != nil {
		return err
	}
	switch r.Status {
	case StatusPending, StatusConflict:
	case StatusSynced:
		if r.ServerID == nil || *r.ServerID == "" {
			return fmt.Errorf("%w: synced record %s has no server id", ErrInvalidRecord, r.ID)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	return ValidatePayload(r.Table, r.Payload)
}

// MarkSynced records the server's acceptance of the record.
func (r *Record) MarkSynced(serverID string, version int64) {
	r.ServerID = &serverID
	r.Version = version
	r.Status = StatusSynced
}

// Clone returns a deep copy so snapshots do not alias live records.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ServerID != nil {
		id := *r.ServerID
		c.ServerID = &id
	}
	c.Payload = append(json.RawMessage(nil), r.Payload...)
	return &c
}

// Note is the payload of a notes record.
type Note struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (n Note) Validate() error {
	if n.Title == "" && n.Content == "" {
		return fmt.Errorf("%w: note needs a title or content", ErrInvalidPayload)
	}
	return nil
}

// Person is the payload of a people record.
type Person struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (p Person) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: person name is required", ErrInvalidPayload)
	}
	return nil
}

// Todo is the payload of a todos record.
type Todo struct {
	Title  string     `json:"title"`
	Done   bool       `json:"done"`
	DueAt  *time.Time `json:"due_at,omitempty"`
	NoteID string     `json:"note_id,omitempty"`
}

func (t Todo) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: todo title is required", ErrInvalidPayload)
	}
	return nil
}
