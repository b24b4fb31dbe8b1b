package event

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
	"github.com/mostwo/mostwo-core/internal/machine"
	_ "github.com/mostwo/mostwo-core/migrations"
)

// testRepos returns event and machine repositories over one migrated temp-file database.
func testRepos(t *testing.T) (*SQLiteRepository, *machine.SQLiteRepository) {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "events.db"),
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
	return NewSQLiteRepository(db.DB), machine.NewSQLiteRepository(db.DB)
}

func mustMachine(t *testing.T, repo *machine.SQLiteRepository, port int) *machine.Machine {
	t.Helper()
	m, err := repo.Create(context.Background(), machine.Input{
		Name: "m", Type: "raspberry_pi", Address: "192.168.1.100", Port: port,
	})
	if err != nil {
		t.Fatalf("creating machine: %v", err)
	}
	return m
}

func mustEvent(t *testing.T, repo *SQLiteRepository, in Input) *Event {
	t.Helper()
	if in.Trigger == nil {
		in.Trigger = []byte(`{"type":"manual"}`)
	}
	if in.Actions == nil {
		in.Actions = []byte(`[]`)
	}
	e, err := repo.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating event %q: %v", in.Name, err)
	}
	return e
}

func ptr[T any](v T) *T { return &v }
