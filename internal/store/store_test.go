package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
)

type widget struct {
	ID     string
	Name   string
	Status string
	Note   *string
	Owner  *string
}

var widgetSchema = Schema[widget]{
	Table:   "widgets",
	Columns: []string{"id", "name", "status", "note", "owner_id"},
	Scan: func(row RowScanner) (*widget, error) {
		var w widget
		var note, owner sql.NullString
		if err := row.Scan(&w.ID, &w.Name, &w.Status, &note, &owner); err != nil {
			return nil, err
		}
		if note.Valid {
			w.Note = &note.String
		}
		if owner.Valid {
			w.Owner = &owner.String
		}
		return &w, nil
	},
	Values: func(w *widget) []any {
		return []any{w.ID, w.Name, w.Status, w.Note, w.Owner}
	},
	ID:    func(w *widget) string { return w.ID },
	SetID: func(w *widget, id string) { w.ID = id },
}

// testStore returns a Store over a temp-file database with a widgets table
// that carries a UNIQUE name and a cascading owner reference.
func testStore(t *testing.T) (*Store[widget], *database.DB) {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "store.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE owners (id TEXT PRIMARY KEY) STRICT;
		CREATE TABLE widgets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			note TEXT,
			owner_id TEXT REFERENCES owners(id) ON DELETE CASCADE
		) STRICT;
		INSERT INTO owners (id) VALUES ('owner-1');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return New(db.DB, widgetSchema), db
}

func mustCreate(t *testing.T, s *Store[widget], w widget) *widget {
	t.Helper()
	got, err := s.Create(context.Background(), &w)
	if err != nil {
		t.Fatalf("Create(%q): %v", w.Name, err)
	}
	return got
}

func strPtr(s string) *string { return &s }

func TestGet(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	created := mustCreate(t, s, widget{Name: "A", Status: "offline"})

	tests := []struct {
		name    string
		id      string
		wantNil bool
	}{
		{"existing", created.ID, false},
		{"malformed id", "not-a-uuid", true},
		{"empty id", "", true},
		{"well formed but absent", uuid.NewString(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Get(ctx, tt.id)
			if err != nil {
				t.Fatalf("Get(%q) error = %v, want nil", tt.id, err)
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("Get(%q) = %+v, wantNil %v", tt.id, got, tt.wantNil)
			}
			if got != nil && got.Name != "A" {
				t.Errorf("Name = %q, want %q", got.Name, "A")
			}
		})
	}
}

func TestGet_CanonicalisesID(t *testing.T) {
	s, _ := testStore(t)
	created := mustCreate(t, s, widget{Name: "A", Status: "offline"})

	u := uuid.MustParse(created.ID)
	got, err := s.Get(context.Background(), "urn:uuid:"+u.String())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Errorf("Get(urn form) = %+v, want %s", got, created.ID)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id when absent", func(t *testing.T) {
		s, _ := testStore(t)
		in := widget{Name: "A", Status: "offline"}

		got, err := s.Create(ctx, &in)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := uuid.Parse(got.ID); err != nil || len(got.ID) != 36 {
			t.Errorf("ID = %q, want canonical uuid", got.ID)
		}
		if in.ID != "" {
			t.Errorf("input was modified: ID = %q", in.ID)
		}
	})

	t.Run("keeps supplied id", func(t *testing.T) {
		s, _ := testStore(t)
		id := uuid.NewString()

		got := mustCreate(t, s, widget{ID: id, Name: "A", Status: "offline"})
		if got.ID != id {
			t.Errorf("ID = %q, want %q", got.ID, id)
		}
	})

	t.Run("rejects malformed supplied id", func(t *testing.T) {
		s, _ := testStore(t)

		_, err := s.Create(ctx, &widget{ID: "abc", Name: "A", Status: "offline"})
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("Create() error = %v, want ErrInvalidID", err)
		}
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		s, _ := testStore(t)
		mustCreate(t, s, widget{Name: "A", Status: "offline"})

		_, err := s.Create(ctx, &widget{Name: "A", Status: "running"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("Create() error = %v, want ErrConflict", err)
		}
		if n, _ := s.Count(ctx); n != 1 {
			t.Errorf("Count() = %d, want 1 after rejected insert", n)
		}
	})

	t.Run("dangling reference is rejected", func(t *testing.T) {
		s, _ := testStore(t)

		_, err := s.Create(ctx, &widget{Name: "A", Status: "offline", Owner: strPtr("nobody")})
		if !errors.Is(err, ErrReference) {
			t.Errorf("Create() error = %v, want ErrReference", err)
		}
	})
}

func TestList(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b", "d"} {
		mustCreate(t, s, widget{Name: name, Status: "offline"})
	}

	tests := []struct {
		name      string
		skip      int
		limit     int
		wantNames []string
	}{
		{"all in insertion order", 0, 100, []string{"c", "a", "b", "d"}},
		{"skip and limit", 1, 2, []string{"a", "b"}},
		{"skip past end", 10, 5, []string{}},
		{"zero limit", 0, 0, []string{}},
		{"negative skip treated as zero", -3, 1, []string{"c"}},
		{"negative limit treated as zero", 0, -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.skip, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if got == nil {
				t.Fatal("List() returned nil slice")
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("List() returned %d records, want %d", len(got), len(tt.wantNames))
			}
			for i, w := range got {
				if w.Name != tt.wantNames[i] {
					t.Errorf("record %d name = %q, want %q", i, w.Name, tt.wantNames[i])
				}
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only present fields", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline", Note: strPtr("keep")})

		got, err := s.Update(ctx, orig, Changes{"status": "running"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Name != "A" || got.Status != "running" {
			t.Errorf("Update() = {%q, %q}, want {A, running}", got.Name, got.Status)
		}
		if got.Note == nil || *got.Note != "keep" {
			t.Errorf("Note = %v, want keep", got.Note)
		}
	})

	t.Run("ignores id in changes", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline"})

		got, err := s.Update(ctx, orig, Changes{"id": uuid.NewString(), "name": "B"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.ID != orig.ID {
			t.Errorf("ID = %q, want unchanged %q", got.ID, orig.ID)
		}
		if got.Name != "B" {
			t.Errorf("Name = %q, want B", got.Name)
		}
	})

	t.Run("nil writes null", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline", Note: strPtr("x")})

		got, err := s.Update(ctx, orig, Changes{"note": nil})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Note != nil {
			t.Errorf("Note = %q, want nil", *got.Note)
		}
	})

	t.Run("empty changes return current row", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline"})
		stale := *orig
		stale.Status = "stale"

		got, err := s.Update(ctx, &stale, Changes{"id": "ignored"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Status != "offline" {
			t.Errorf("Status = %q, want stored value offline", got.Status)
		}
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline"})

		_, err := s.Update(ctx, orig, Changes{"colour": "red"})
		if !errors.Is(err, ErrUnknownField) {
			t.Errorf("Update() error = %v, want ErrUnknownField", err)
		}
	})

	t.Run("conflicting rename", func(t *testing.T) {
		s, _ := testStore(t)
		mustCreate(t, s, widget{Name: "A", Status: "offline"})
		b := mustCreate(t, s, widget{Name: "B", Status: "offline"})

		_, err := s.Update(ctx, b, Changes{"name": "A"})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Update() error = %v, want ErrConflict", err)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		s, _ := testStore(t)

		_, err := s.Update(ctx, &widget{ID: uuid.NewString()}, Changes{"name": "x"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("returns deleted record", func(t *testing.T) {
		s, _ := testStore(t)
		orig := mustCreate(t, s, widget{Name: "A", Status: "offline"})

		got, err := s.Remove(ctx, orig.ID)
		if err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if got.ID != orig.ID || got.Name != "A" {
			t.Errorf("Remove() = %+v, want %+v", got, orig)
		}
		if after, _ := s.Get(ctx, orig.ID); after != nil {
			t.Error("record still retrievable after Remove")
		}
	})

	for name, id := range map[string]string{
		"absent id":    uuid.NewString(),
		"malformed id": "nope",
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := testStore(t)

			got, err := s.Remove(ctx, id)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Remove(%q) error = %v, want ErrNotFound", id, err)
			}
			if got != nil {
				t.Errorf("Remove(%q) = %+v, want nil", id, got)
			}
		})
	}
}

func TestFind(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	owner := "owner-1"
	mustCreate(t, s, widget{Name: "a", Status: "running", Owner: &owner})
	mustCreate(t, s, widget{Name: "b", Status: "offline"})
	mustCreate(t, s, widget{Name: "c", Status: "running", Owner: &owner})

	t.Run("FindOne hit", func(t *testing.T) {
		got, err := s.FindOne(ctx, `"status" = ?`, "running")
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if got == nil || got.Name != "a" {
			t.Errorf("FindOne() = %+v, want first running widget", got)
		}
	})

	t.Run("FindOne miss", func(t *testing.T) {
		got, err := s.FindOne(ctx, `"name" = ?`, "zzz")
		if err != nil || got != nil {
			t.Errorf("FindOne() = %+v, %v; want nil, nil", got, err)
		}
	})

	t.Run("FindMany pages", func(t *testing.T) {
		got, err := s.FindMany(ctx, `"owner_id" = ?`, []any{owner}, 1, 10)
		if err != nil {
			t.Fatalf("FindMany() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "c" {
			t.Errorf("FindMany() = %+v, want [c]", got)
		}
	})

	t.Run("FindAll", func(t *testing.T) {
		got, err := s.FindAll(ctx, `"status" = ?`, "running")
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("FindAll() returned %d, want 2", len(got))
		}
	})

	t.Run("cascade through owner", func(t *testing.T) {
		if _, err := db.ExecContext(ctx, "DELETE FROM owners WHERE id = ?", owner); err != nil {
			t.Fatalf("deleting owner: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count() = %d, want 1 after cascade", n)
		}
	})
}

func TestNew_PanicsOnBadSchema(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() with id not first did not panic")
		}
	}()
	bad := widgetSchema
	bad.Columns = []string{"name", "id"}
	New(nil, bad)
}

func TestTransactionsReleaseConnection(t *testing.T) {
	// The pool holds a single connection; a leaked transaction would
	// block the next call until the context expires.
	s, db := testStore(t)
	ctx := context.Background()

	mustCreate(t, s, widget{Name: "A", Status: "offline"})
	for range 5 {
		if _, err := s.Create(ctx, &widget{Name: "A", Status: "offline"}); !errors.Is(err, ErrConflict) {
			t.Fatalf("Create() error = %v, want ErrConflict", err)
		}
		if _, err := s.Remove(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Remove() error = %v, want ErrNotFound", err)
		}
	}

	if inUse := db.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use = %d, want 0", inUse)
	}
}

func TestCanonicalID(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"canonical", id, id, true},
		{"uppercase", strings.ToUpper(id), id, true},
		{"braced", "{" + id + "}", id, true},
		{"malformed", "pi-1", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalID(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CanonicalID(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
