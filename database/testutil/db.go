// Package testutil opens throwaway in-memory SQLite databases for store tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
)

// NewDB opens a private in-memory SQLite database, migrates models and
// closes it when the test ends. A single connection keeps concurrent
// writers from tripping SQLite's table locks.
func NewDB(t testing.TB, models ...any) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := database.Config{
		Driver:          database.DriverSQLite,
		DSN:             fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		Pool:            database.PoolConfig{MaxOpen: 1, MaxIdle: 1},
		ConnectAttempts: 1,
		LogLevel:        "silent",
	}

	db, err := database.New(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}
	return db
}
