// Package migrations holds the versioned schema for the destination table
// and applies it with golang-migrate.
//
// Migrations exist for postgres and mysql and always target the default
// table name. Other table names and sqlite use store.DB.InitSchema.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// Drivers lists the engines that have migrations.
var Drivers = []string{"postgres", "mysql"}

// Source returns the migration files for driver.
func Source(driver string) (fs.FS, error) {
	for _, d := range Drivers {
		if d == driver {
			return fs.Sub(files, driver)
		}
	}
	return nil, fmt.Errorf("no migrations for driver %q", driver)
}

// Migrator applies migrations to one database.
type Migrator struct {
	m *migrate.Migrate
}

// Status is the migration state of a database.
type Status struct {
	Version uint
	Dirty   bool
	// None is set when no migration has ever been applied.
	None bool
}

// New opens a migrator for the database at databaseURL, a URL in the form
// store.DB.MigrateURL returns.
//
// The caller MUST call Close() when done.
func New(driver, databaseURL string, logger *slog.Logger) (*Migrator, error) {
	sub, err := Source(driver)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if logger != nil {
		m.Log = &migrateLogger{logger: logger.With("component", "migrate")}
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. It returns false when the database
// was already current.
func (mg *Migrator) Up() (bool, error) {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return true, nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) (bool, error) {
	if steps < 1 {
		return false, fmt.Errorf("steps must be positive, got %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return true, nil
}

// Version reports the current migration state.
func (mg *Migrator) Version() (Status, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{None: true}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

// Force sets the recorded version without running migrations, clearing a
// dirty state left by a failed migration.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }
