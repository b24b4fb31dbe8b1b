package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
	_ "github.com/mostwo/mostwo-core/migrations"
)

// testDB creates a migrated temp-file SQLite database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
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
	return db.DB
}

// seedTestUser inserts an active user with a known password.
func seedTestUser(t *testing.T, db *sql.DB, email string, superuser bool) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	u := &User{
		Email:        email,
		FullName:     "Test " + email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return u
}
