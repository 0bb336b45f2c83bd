package presence

import (
	"encoding/json"
	"time"

	"notekeeper/internal/domain/record"
	syncdomain "notekeeper/internal/domain/sync"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Wire message types. cursor and content-change travel in both directions.
const (
	MessageUserJoined       = "user-joined"
	MessageUserLeft         = "user-left"
	MessageCursor           = "cursor"
	MessageContentChange    = "content-change"
	MessageConflictDetected = "conflict-detected"
)

type EventType string

const (
	EventUserJoined           EventType = "user_joined"
	EventUserLeft             EventType = "user_left"
	EventCursor               EventType = "cursor"
	EventContentChange        EventType = "content_change"
	EventConflictDetected     EventType = "conflict_detected"
	EventStateChanged         EventType = "state_changed"
	EventPersistentDisconnect EventType = "persistent_disconnect"
)

// Envelope is the JSON frame exchanged with the collaboration server.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Participant struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Color  string `json:"color,omitempty"`
}

type Cursor struct {
	UserID string `json:"user_id"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type ContentChange struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	Version int64  `json:"version,omitempty"`
}

type ConflictNotice struct {
	Table    record.Table            `json:"table"`
	RecordID string                  `json:"record_id"`
	Remote   syncdomain.RemoteRecord `json:"remote"`
	Reason   string                  `json:"reason,omitempty"`
}

// Event is what a Session publishes to its consumer. Exactly one of the
// pointer fields is set, matching Type; state events carry State.
type Event struct {
	Type        EventType
	NoteID      string
	Participant *Participant
	Cursor      *Cursor
	Change      *ContentChange
	Conflict    *ConflictNotice
	State       State
	Err         error
	At          time.Time
}

type Config struct {
	URL    string
	UserID string
	Token  string

	Backoff Backoff
	// EventBuffer is the capacity of the Events channel. Events are dropped
	// when the consumer falls behind.
	EventBuffer int
}
