package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"notekeeper/internal/infrastructure/migration"
)

// Storage is the local cache: records, offline queue, sync bookkeeping and
// note history in one SQLite file.
type Storage struct {
	*RecordRepository
	*QueueRepository
	*MetadataRepository
	*ConflictRepository
	*VersionRepository

	db  *sql.DB
	log *slog.Logger
}

// New opens (creating when needed) and migrates the database at path.
func New(path string, log *slog.Logger) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := migration.NewMigration(path, nil).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and transactions
	// must not interleave.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{
		RecordRepository:   NewRecordRepository(db, log),
		QueueRepository:    NewQueueRepository(db, log),
		MetadataRepository: NewMetadataRepository(db, log),
		ConflictRepository: NewConflictRepository(db, log),
		VersionRepository:  NewVersionRepository(db, log),
		db:                 db,
		log:                log.With("component", "sqlite_storage"),
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Reset wipes the sync cache. Note history is local-only and survives.
func (s *Storage) Reset(ctx context.Context) error {
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM records`,
			`DELETE FROM queue_items`,
			`DELETE FROM sync_metadata`,
			`DELETE FROM sync_conflicts`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to reset cache", "error", err)
		return fmt.Errorf("reset cache: %w", err)
	}
	s.log.Info("local cache reset")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
