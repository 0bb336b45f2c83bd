package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"notekeeper/internal/domain/record"
)

// State is the sync manager's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Metadata is the per-table bookkeeping written at the end of every pass.
type Metadata struct {
	Table          record.Table `json:"table"`
	LastSync       time.Time    `json:"last_sync"`
	SyncToken      string       `json:"sync_token"`
	TotalRecords   int          `json:"total_records"`
	PendingChanges int          `json:"pending_changes"`
}

// RemoteRecord is the server's copy of a record.
type RemoteRecord struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"client_id,omitempty"`
	Table     record.Table    `json:"table"`
	Payload   json.RawMessage `json:"payload"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted,omitempty"`
}

// LocalID is the identifier a record pulled from the server gets locally.
// Records created elsewhere get an id derived from their table and server id,
// since server ids are only unique within a table.
func (r RemoteRecord) LocalID() string {
	if r.ClientID != "" {
		return r.ClientID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(r.Table)+"/"+r.ID)).String()
}

// PullResult is one page of remote changes.
type PullResult struct {
	Records   []RemoteRecord `json:"records"`
	SyncToken string         `json:"sync_token"`
}

// Conflict is a record whose local and remote copies both changed since the
// last common sync point.
type Conflict struct {
	ID         string         `json:"id"`
	Table      record.Table   `json:"table"`
	Local      *record.Record `json:"local"`
	Remote     RemoteRecord   `json:"remote"`
	Reason     string         `json:"reason"`
	DetectedAt time.Time      `json:"detected_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	Resolution Strategy       `json:"resolution,omitempty"`
}

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	KeepLocal  Strategy = "keep_local"
	KeepRemote Strategy = "keep_remote"
	Merge      Strategy = "merge"

	// dismissed marks conflicts closed by the user without a resolution.
	dismissed Strategy = "dismissed"
)

// ParseStrategy validates a user-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case KeepLocal, KeepRemote, Merge:
		return st, nil
	}
	return "", ErrUnknownStrategy
}

// Resolution is the user's decision for one conflict. Merged is required iff
// Strategy is Merge.
type Resolution struct {
	Strategy Strategy        `json:"strategy"`
	Merged   json.RawMessage `json:"merged,omitempty"`
}

// Config tunes the sync manager.
type Config struct {
	// MaxRetries is the number of failed attempts after which a queue item is dropped.
	MaxRetries  int
	PingTimeout time.Duration
	// ConflictTTL is how long resolved conflicts are kept to absorb duplicate resolutions.
	ConflictTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:  5,
		PingTimeout: 5 * time.Second,
		ConflictTTL: 24 * time.Hour,
	}
}
