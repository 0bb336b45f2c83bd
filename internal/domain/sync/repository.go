package sync

import (
	"context"
	"time"

	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
)

// MetadataRepository persists per-table sync bookkeeping.
type MetadataRepository interface {
	// GetSyncMetadata returns ErrMetadataNotFound before the first pass.
	GetSyncMetadata(ctx context.Context, table record.Table) (*Metadata, error)
	SetSyncMetadata(ctx context.Context, meta *Metadata) error
	ListSyncMetadata(ctx context.Context) ([]*Metadata, error)
	// Reset wipes every cached record, queue item, conflict and metadata row.
	Reset(ctx context.Context) error
}

// ConflictRepository persists detected conflicts.
type ConflictRepository interface {
	// SaveConflict upserts c and reopens it if it was resolved.
	SaveConflict(ctx context.Context, c *Conflict) error
	// GetConflict returns resolved conflicts too; ErrConflictNotFound otherwise.
	GetConflict(ctx context.Context, id string) (*Conflict, error)
	ListConflicts(ctx context.Context) ([]*Conflict, error)
	MarkConflictResolved(ctx context.Context, id string, strategy Strategy, at time.Time) error
	PruneResolvedConflicts(ctx context.Context, before time.Time) (int, error)
}

// Store is the slice of the local store the sync manager works against.
type Store interface {
	record.Repository
	queue.Repository
	MetadataRepository
	ConflictRepository
}
