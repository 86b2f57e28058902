package testutil

import (
	"testing"

	"dpc-go/internal/database"
	"dpc-go/internal/database/migrations"
	"dpc-go/internal/dpc"
)

// NewTestStore creates a new in-memory SQLite store with all migrations
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) dpc.Store {
	t.Helper()
	return NewTestSQLiteStore(t)
}

// NewTestSQLiteStore is NewTestStore returning the concrete type, for tests
// that need raw SQL access.
func NewTestSQLiteStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	if err := migrations.MigrateUp(store.DB()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return store
}
