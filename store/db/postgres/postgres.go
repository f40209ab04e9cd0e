package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
// The pgvector extension must be available on the server; the schema
// creates it on first run.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: postgresDB, profile: profile}

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
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'memory_vector')",
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
		VALUES (` + placeholder(1) + `)
		ON CONFLICT (version) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, version); err != nil {
		return errors.Wrap(err, "failed to upsert migration history")
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 1; i <= n; i++ {
		list = append(list, placeholder(i))
	}
	return strings.Join(list, ", ")
}
