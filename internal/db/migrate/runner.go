// Package migrate runs database migrations from embedded SQL files using golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"family-radio/companion/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// Run applies migrations in the given direction to the sqlite database at path.
// direction must be "up" or "down". Returns nil on success; ErrNoChange when already
// at latest (up) or nothing to downgrade (down); other errors for DB or I/O failures.
func Run(path string, direction string) error {
	if path == "" {
		return errors.New("migrate: database path is empty")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite3://"+path)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	}
	return nil
}

// Ensure brings the database at path up to the latest schema, treating ErrNoChange as success.
// Used by the binaries at startup so a fresh install needs no separate migrate step.
func Ensure(path string) error {
	if err := Run(path, "up"); err != nil && !errors.Is(err, ErrNoChange) {
		return err
	}
	return nil
}
