package sqlite

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

// SQLite is supported for development and single-user instances. Vector
// similarity is computed in the application layer over BLOB-encoded
// embeddings, which is fine at personal-use scale; production deployments
// use PostgreSQL with pgvector.

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database at the DSN from the profile.
//
// Pragmas: no foreign-key enforcement (explicitly off to prevent surprises
// on SQLite upgrades), WAL journal mode to avoid locking issues, and a busy
// timeout high enough for the single writer. With the modernc.org/sqlite
// driver each pragma is passed as a `_pragma=` query parameter.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL, and it keeps the
	// in-memory DSN from silently spawning a second empty database.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'memory_vector')",
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

func (d *DB) ApplyLatestSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

func (d *DB) GetCurrentMigrationVersion(ctx context.Context) (string, error) {
	var version string
	err := d.db.QueryRowContext(ctx,
		"SELECT version FROM migration_history ORDER BY created_ts DESC LIMIT 1",
	).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to get current migration version")
	}
	return version, nil
}

func (d *DB) UpsertMigrationHistory(ctx context.Context, version string) error {
	stmt := `
		INSERT INTO migration_history (version)
		VALUES (?)
		ON CONFLICT (version) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, version); err != nil {
		return errors.Wrap(err, "failed to upsert migration history")
	}
	return nil
}
