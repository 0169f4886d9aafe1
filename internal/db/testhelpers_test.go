// Package db provides GORM-based database operations for inkwell.
package db

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"
)

// testStore creates a Store backed by a temporary SQLite database.
func testStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(Config{
		Driver:   "sqlite",
		DSN:      dbPath,
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testBareStore creates a Store without running migrations.
func testBareStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "bare.db")
	store, err := NewStore(Config{
		Driver:         "sqlite",
		DSN:            dbPath,
		MaxConns:       2,
		LogLevel:       logger.Silent,
		SkipMigrations: true,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}
