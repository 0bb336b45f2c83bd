package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// Blank import required for SQLite driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

// Migrator is the part of migrate.Migrate used here.
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine builds a Migrator; tests swap it to stay off the filesystem.
type MigrationEngine func(src source.Driver, databaseURL string) (Migrator, error)

type Migration struct {
	dbPath string
	engine MigrationEngine
}

// NewMigration migrates the SQLite file at dbPath. A nil engine means
// DefaultEngine.
func NewMigration(dbPath string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		dbPath: dbPath,
		engine: engine,
	}
}

func DefaultEngine(src source.Driver, databaseURL string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// Source exposes the embedded migrations.
func Source() (source.Driver, error) {
	return iofs.New(files, "sql")
}

// Up applies every pending migration. Being up to date is not an error.
func (mg *Migration) Up() (err error) {
	src, err := Source()
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	m, err := mg.engine(src, "sqlite3://"+mg.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}
