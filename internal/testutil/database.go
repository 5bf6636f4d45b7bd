// Package testutil provides shared test fixtures: in-memory databases and
// dataset builders with workable astronomical defaults.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/storage"
)

// SetupTestDB creates a migrated in-memory database ready for seeding. It
// automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
