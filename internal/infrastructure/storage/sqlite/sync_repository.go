package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/record"
	"notekeeper/internal/domain/sync"
)

type MetadataRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMetadataRepository(db *sql.DB, log *slog.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:  db,
		log: log.With("component", "metadata_repository"),
	}
}

const metadataColumns = `tbl, last_sync, sync_token, total_records, pending_changes`

func (m *MetadataRepository) GetSyncMetadata(ctx context.Context, table record.Table) (*sync.Metadata, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+metadataColumns+` FROM sync_metadata WHERE tbl = ?`, table)

	meta, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sync.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("get sync metadata: %w", err)
	}
	return meta, nil
}

func (m *MetadataRepository) SetSyncMetadata(ctx context.Context, meta *sync.Metadata) error {
	const query = `
		INSERT INTO sync_metadata (` + metadataColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tbl) DO UPDATE SET
			last_sync = excluded.last_sync,
			sync_token = excluded.sync_token,
			total_records = excluded.total_records,
			pending_changes = excluded.pending_changes`

	_, err := m.db.ExecContext(ctx, query,
		meta.Table, meta.LastSync.UTC(), meta.SyncToken, meta.TotalRecords, meta.PendingChanges)
	if err != nil {
		m.log.Error("failed to save sync metadata", "table", meta.Table, "error", err)
		return fmt.Errorf("set sync metadata: %w", err)
	}
	return nil
}

func (m *MetadataRepository) ListSyncMetadata(ctx context.Context) ([]*sync.Metadata, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+metadataColumns+` FROM sync_metadata ORDER BY tbl`)
	if err != nil {
		return nil, fmt.Errorf("list sync metadata: %w", err)
	}
	defer rows.Close()

	var out []*sync.Metadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync metadata: %w", err)
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func scanMetadata(row scanner) (*sync.Metadata, error) {
	var meta sync.Metadata
	err := row.Scan(&meta.Table, &meta.LastSync, &meta.SyncToken, &meta.TotalRecords, &meta.PendingChanges)
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// ConflictRepository stores conflicts with their local and remote snapshots
// as JSON.
type ConflictRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewConflictRepository(db *sql.DB, log *slog.Logger) *ConflictRepository {
	return &ConflictRepository{
		db:  db,
		log: log.With("component", "conflict_repository"),
	}
}

const conflictColumns = `id, tbl, local, remote, reason, detected_at, resolved_at, resolution`

func (c *ConflictRepository) SaveConflict(ctx context.Context, conflict *sync.Conflict) error {
	local, err := json.Marshal(conflict.Local)
	if err != nil {
		return fmt.Errorf("encode local snapshot: %w", err)
	}
	remote, err := json.Marshal(conflict.Remote)
	if err != nil {
		return fmt.Errorf("encode remote snapshot: %w", err)
	}

	const query = `
		INSERT INTO sync_conflicts (` + conflictColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, NULL, '')
		ON CONFLICT (id) DO UPDATE SET
			tbl = excluded.tbl,
			local = excluded.local,
			remote = excluded.remote,
			reason = excluded.reason,
			detected_at = excluded.detected_at,
			resolved_at = NULL,
			resolution = ''`

	_, err = c.db.ExecContext(ctx, query,
		conflict.ID, conflict.Table, string(local), string(remote), conflict.Reason, conflict.DetectedAt.UTC())
	if err != nil {
		c.log.Error("failed to save conflict", "id", conflict.ID, "error", err)
		return fmt.Errorf("save conflict: %w", err)
	}
	return nil
}

func (c *ConflictRepository) GetConflict(ctx context.Context, id string) (*sync.Conflict, error) {
	conflict, err := scanConflict(c.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM sync_conflicts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sync.ErrConflictNotFound
		}
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return conflict, nil
}

func (c *ConflictRepository) ListConflicts(ctx context.Context) ([]*sync.Conflict, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM sync_conflicts WHERE resolved_at IS NULL ORDER BY id`)
	if err != nil {
		c.log.Error("failed to list conflicts", "error", err)
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	out := []*sync.Conflict{}
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, conflict)
	}
	return out, rows.Err()
}

func (c *ConflictRepository) MarkConflictResolved(ctx context.Context, id string, strategy sync.Strategy, at time.Time) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE sync_conflicts SET resolved_at = ?, resolution = ? WHERE id = ?`, at.UTC(), strategy, id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sync.ErrConflictNotFound
	}
	return nil
}

// PruneResolvedConflicts removes tombstones resolved before the cutoff.
// Timestamps are stored in UTC so the text comparison orders correctly.
func (c *ConflictRepository) PruneResolvedConflicts(ctx context.Context, before time.Time) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM sync_conflicts WHERE resolved_at IS NOT NULL AND resolved_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune conflicts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanConflict(row scanner) (*sync.Conflict, error) {
	var (
		conflict      sync.Conflict
		local, remote string
		resolvedAt    sql.NullTime
	)
	err := row.Scan(&conflict.ID, &conflict.Table, &local, &remote, &conflict.Reason,
		&conflict.DetectedAt, &resolvedAt, &conflict.Resolution)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(local), &conflict.Local); err != nil {
		return nil, fmt.Errorf("decode local snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(remote), &conflict.Remote); err != nil {
		return nil, fmt.Errorf("decode remote snapshot: %w", err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		conflict.ResolvedAt = &t
	}
	return &conflict, nil
}
