// Package migration runs the versioned SQL schema with golang-migrate.
// Files are read from an fs.FS, normally the embedded migrations package,
// and follow golang-migrate's NNNNNN_name.up.sql / .down.sql naming.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Result describes the schema after Up.
type Result struct {
	Version uint
	Changed bool
}

// Up brings a postgres database to the newest version in dir of fsys.
// The migrator is not closed because that would close db as well.
func Up(db *sql.DB, fsys fs.FS, dir string) (Result, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return Result{}, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return Result{}, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return Result{}, fmt.Errorf("migrator: %w", err)
	}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Result{}, fmt.Errorf("read version: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Result{}, fmt.Errorf("migrate up from %d: %w", before, err)
	}
	after, dirty, err := m.Version()
	if err != nil {
		return Result{}, fmt.Errorf("read version: %w", err)
	}
	if dirty {
		return Result{Version: after}, fmt.Errorf("schema version %d is dirty", after)
	}
	return Result{Version: after, Changed: after != before}, nil
}
