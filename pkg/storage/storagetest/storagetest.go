// Package storagetest opens migrated databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/sitepanel/pkg/storage"
)

var dbCounter atomic.Int64

// NewSQLite returns a fresh, migrated in-memory SQLite database that is closed when
// the test ends. Each call gets its own database.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	name := fmt.Sprintf("file:sitepanel_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}
