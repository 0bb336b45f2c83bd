package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
)

const itemColumns = `seq, operation, tbl, record_id, payload, created_at, retry_count, last_error`

// QueueRepository keeps the offline queue. Dropped items stay in the table
// with dropped_at set until discarded.
type QueueRepository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewQueueRepository(db *sql.DB, log *slog.Logger) *QueueRepository {
	return &QueueRepository{
		db:  db,
		log: log.With("component", "queue_repository"),
		now: time.Now,
	}
}

func (q *QueueRepository) Enqueue(ctx context.Context, item *queue.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.now()
	}

	const query = `
		INSERT INTO queue_items (operation, tbl, record_id, payload, created_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := q.db.ExecContext(ctx, query,
		item.Operation, item.Table, item.RecordID, string(item.Payload),
		item.CreatedAt.UTC(), item.RetryCount, nullString(item.LastError),
	)
	if err != nil {
		q.log.Error("failed to enqueue", "table", item.Table, "record_id", item.RecordID, "error", err)
		return fmt.Errorf("enqueue: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	item.Seq = seq
	return nil
}

func (q *QueueRepository) DequeueOldest(ctx context.Context, table record.Table) (*queue.Item, error) {
	const query = `
		SELECT ` + itemColumns + ` FROM queue_items
		WHERE tbl = ? AND dropped_at IS NULL
		ORDER BY seq LIMIT 1`

	item, err := scanItem(q.db.QueryRowContext(ctx, query, table))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrEmpty
		}
		q.log.Error("failed to peek queue", "table", table, "error", err)
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	return item, nil
}

func (q *QueueRepository) ListQueue(ctx context.Context, table record.Table) ([]*queue.Item, error) {
	return q.list(ctx, `
		SELECT `+itemColumns+` FROM queue_items
		WHERE tbl = ? AND dropped_at IS NULL
		ORDER BY seq`, table)
}

func (q *QueueRepository) MarkFailed(ctx context.Context, seq int64, cause string) (int, error) {
	const query = `
		UPDATE queue_items SET retry_count = retry_count + 1, last_error = ?
		WHERE seq = ? AND dropped_at IS NULL
		RETURNING retry_count`

	var n int
	if err := q.db.QueryRowContext(ctx, query, cause, seq).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, queue.ErrEmpty
		}
		return 0, fmt.Errorf("mark failed: %w", err)
	}
	return n, nil
}

func (q *QueueRepository) RemoveFromQueue(ctx context.Context, seq int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM queue_items WHERE seq = ?`, seq); err != nil {
		q.log.Error("failed to remove queue item", "seq", seq, "error", err)
		return fmt.Errorf("remove from queue: %w", err)
	}
	return nil
}

func (q *QueueRepository) RemoveQueuedFor(ctx context.Context, table record.Table, recordID string) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM queue_items WHERE tbl = ? AND record_id = ? AND dropped_at IS NULL`, table, recordID)
	if err != nil {
		return 0, fmt.Errorf("remove queued for %s: %w", recordID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (q *QueueRepository) CountQueue(ctx context.Context, table record.Table) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_items WHERE tbl = ? AND dropped_at IS NULL`, table,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

func (q *QueueRepository) DropFromQueue(ctx context.Context, seq int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE queue_items SET dropped_at = ? WHERE seq = ? AND dropped_at IS NULL`, q.now().UTC(), seq)
	if err != nil {
		q.log.Error("failed to drop queue item", "seq", seq, "error", err)
		return fmt.Errorf("drop from queue: %w", err)
	}
	return nil
}

func (q *QueueRepository) ListDropped(ctx context.Context) ([]*queue.Item, error) {
	return q.list(ctx, `
		SELECT `+itemColumns+` FROM queue_items
		WHERE dropped_at IS NOT NULL
		ORDER BY seq`)
}

func (q *QueueRepository) DiscardDropped(ctx context.Context, seq int64) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM queue_items WHERE seq = ? AND dropped_at IS NOT NULL`, seq)
	if err != nil {
		return fmt.Errorf("discard dropped: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return queue.ErrEmpty
	}
	return nil
}

func (q *QueueRepository) list(ctx context.Context, query string, args ...any) ([]*queue.Item, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		q.log.Error("failed to list queue", "error", err)
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []*queue.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanItem(row scanner) (*queue.Item, error) {
	var (
		item    queue.Item
		payload string
		lastErr sql.NullString
	)
	err := row.Scan(&item.Seq, &item.Operation, &item.Table, &item.RecordID,
		&payload, &item.CreatedAt, &item.RetryCount, &lastErr)
	if err != nil {
		return nil, err
	}
	item.Payload = json.RawMessage(payload)
	item.LastError = stringPtr(lastErr)
	return &item, nil
}
