package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status describes the schema version of a database relative to the
// migrations compiled into the binary.
type Status struct {
	Current uint // 0 if no migration was ever applied
	Latest  uint
	Dirty   bool
}

// GetStatus reads the schema version of db.
func GetStatus(db *sql.DB) (*Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db, which the caller owns.

	latest, err := LatestVersion()
	if err != nil {
		return nil, err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to get database version: %w", err)
	}

	return &Status{Current: version, Latest: latest, Dirty: dirty}, nil
}

// CheckDBMigrationStatus verifies that the database schema is up-to-date.
// Returns nil if the database is at the latest version.
func CheckDBMigrationStatus(db *sql.DB) error {
	st, err := GetStatus(db)
	if err != nil {
		return err
	}

	switch {
	case st.Current == 0:
		return fmt.Errorf("database has no schema version (needs migration)")
	case st.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", st.Current)
	case st.Current < st.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			st.Current, st.Latest, st.Latest-st.Current)
	case st.Current > st.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			st.Current, st.Latest)
	}
	return nil
}

// MigrateUp runs all pending migrations to bring database to latest version.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// LatestVersion returns the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	return lastVersion(src)
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

// lastVersion walks src from the first migration until Next fails.
func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	for {
		next, err := src.Next(version)
		if err != nil {
			return version, nil
		}
		version = next
	}
}
