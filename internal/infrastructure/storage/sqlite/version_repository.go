package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/history"
)

type VersionRepository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewVersionRepository(db *sql.DB, log *slog.Logger) *VersionRepository {
	return &VersionRepository{
		db:  db,
		log: log.With("component", "version_repository"),
		now: time.Now,
	}
}

const versionColumns = `note_id, number, content, author, created_at, description`

func (r *VersionRepository) AppendNoteVersion(ctx context.Context, v *history.Version) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = r.now().UTC()
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(number), 0) + 1 FROM note_versions WHERE note_id = ?`, v.NoteID,
		).Scan(&next)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO note_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			v.NoteID, next, v.Content, v.Author, v.CreatedAt.UTC(), v.Description)
		if err != nil {
			return err
		}
		v.Number = next
		return nil
	})
	if err != nil {
		r.log.Error("failed to append note version", "note_id", v.NoteID, "error", err)
		return fmt.Errorf("append note version: %w", err)
	}
	return nil
}

func (r *VersionRepository) ListNoteVersions(ctx context.Context, noteID string) ([]*history.Version, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM note_versions WHERE note_id = ? ORDER BY number DESC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note versions: %w", err)
	}
	defer rows.Close()

	out := []*history.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VersionRepository) GetNoteVersion(ctx context.Context, noteID string, number int) (*history.Version, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM note_versions WHERE note_id = ? AND number = ?`, noteID, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, history.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get note version: %w", err)
	}
	return v, nil
}

func scanVersion(row scanner) (*history.Version, error) {
	var v history.Version
	if err := row.Scan(&v.NoteID, &v.Number, &v.Content, &v.Author, &v.CreatedAt, &v.Description); err != nil {
		return nil, err
	}
	return &v, nil
}
