package machine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
	_ "github.com/mostwo/mostwo-core/migrations"
)

// testDB opens a migrated temp-file database.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "machines.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(testDB(t).DB)
}
