package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/internal/version"
)

// Migrate prepares the database schema. A fresh database gets the latest
// schema in one shot; an existing one only has its recorded version advanced.
// Running an older binary against a newer schema is refused outright, since
// downgrade behavior is undefined.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}

	current := version.GetCurrentVersion(s.profile.Mode)

	if !initialized {
		if err := s.driver.ApplyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		if err := s.driver.UpsertMigrationHistory(ctx, current); err != nil {
			return errors.Wrap(err, "failed to record migration history")
		}
		return nil
	}

	stored, err := s.driver.GetCurrentMigrationVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read migration history")
	}
	if stored == "" {
		return errors.Wrap(s.driver.UpsertMigrationHistory(ctx, current), "failed to record migration history")
	}

	if version.IsVersionGreaterThan(stored, current) {
		return errors.Errorf("database schema version %s is newer than binary version %s", stored, current)
	}
	if version.IsVersionGreaterThan(current, stored) {
		return errors.Wrap(s.driver.UpsertMigrationHistory(ctx, current), "failed to record migration history")
	}
	return nil
}
