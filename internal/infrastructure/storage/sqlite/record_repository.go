package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/record"
)

const recordColumns = `id, tbl, server_id, payload, status, last_modified_locally, version`

type RecordRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRecordRepository(db *sql.DB, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:  db,
		log: log.With("component", "record_repository"),
	}
}

func (r *RecordRepository) GetRecord(ctx context.Context, table record.Table, id string) (*record.Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM records WHERE tbl = ? AND id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, table, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		r.log.Error("failed to get record", "table", table, "id", id, "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository) GetRecordByServerID(ctx context.Context, table record.Table, serverID string) (*record.Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM records WHERE tbl = ? AND server_id = ? LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, table, serverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		r.log.Error("failed to get record by server id", "table", table, "server_id", serverID, "error", err)
		return nil, fmt.Errorf("get record by server id: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository) ListRecords(ctx context.Context, table record.Table, status *record.Status) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE tbl = ?`
	args := []any{table}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list records", "table", table, "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveRecord inserts rec or replaces the stored copy.
func (r *RecordRepository) SaveRecord(ctx context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tbl, id) DO UPDATE SET
			server_id = excluded.server_id,
			payload = excluded.payload,
			status = excluded.status,
			last_modified_locally = excluded.last_modified_locally,
			version = excluded.version`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Table, nullString(rec.ServerID), string(rec.Payload),
		rec.Status, rec.LastModifiedLocally.UTC(), rec.Version,
	)
	if err != nil {
		r.log.Error("failed to save record", "table", rec.Table, "id", rec.ID, "error", err)
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, table record.Table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, table, id)
	if err != nil {
		r.log.Error("failed to delete record", "table", table, "id", id, "error", err)
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) CountRecords(ctx context.Context, table record.Table) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE tbl = ?`, table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (r *RecordRepository) CountPending(ctx context.Context, table record.Table) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE tbl = ? AND status = ?`, table, record.StatusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		rec      record.Record
		serverID sql.NullString
		payload  string
	)
	err := row.Scan(&rec.ID, &rec.Table, &serverID, &payload,
		&rec.Status, &rec.LastModifiedLocally, &rec.Version)
	if err != nil {
		return nil, err
	}
	rec.ServerID = stringPtr(serverID)
	rec.Payload = json.RawMessage(payload)
	return &rec, nil
}
