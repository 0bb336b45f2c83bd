package queue

import (
	"context"

	"notekeeper/internal/domain/record"
)

// Repository is the offline queue half of the local store.
type Repository interface {
	// Enqueue appends item and assigns its sequence id.
	Enqueue(ctx context.Context, item *Item) error
	// DequeueOldest returns the front item of table without removing it.
	// ErrEmpty is returned when nothing is queued.
	DequeueOldest(ctx context.Context, table record.Table) (*Item, error)
	ListQueue(ctx context.Context, table record.Table) ([]*Item, error)
	// MarkFailed bumps the retry count of seq and returns the new value.
	MarkFailed(ctx context.Context, seq int64, cause string) (int, error)
	RemoveFromQueue(ctx context.Context, seq int64) error
	// RemoveQueuedFor discards every live item targeting one record.
	RemoveQueuedFor(ctx context.Context, table record.Table, recordID string) (int, error)
	CountQueue(ctx context.Context, table record.Table) (int, error)

	// DropFromQueue takes seq out of the live queue but keeps it listed as a
	// permanently failed operation until the user discards it.
	DropFromQueue(ctx context.Context, seq int64) error
	ListDropped(ctx context.Context) ([]*Item, error)
	DiscardDropped(ctx context.Context, seq int64) error
}
