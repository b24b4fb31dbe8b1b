package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &User{Email: "  Alice@Example.COM ", FullName: "Alice", PasswordHash: "h", IsActive: true}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalised", u.Email)
	}

	byID, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.FullName != "Alice" || !byID.IsActive || byID.IsSuperuser {
		t.Errorf("GetByID() = %+v", byID)
	}
	if byID.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, u.ID)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedTestUser(t, db, "dup@example.com", false)

	err := repo.Create(ctx, &User{Email: "DUP@example.com", PasswordHash: "h", IsActive: true})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Create() error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.SetActive(ctx, "missing", false); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetActive() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.UpdatePassword(ctx, "missing", "h"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdatePassword() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_SetActiveAndPassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := seedTestUser(t, db, "bob@example.com", false)

	if err := repo.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if err := repo.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Error("IsActive = true after SetActive(false)")
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want new-hash", got.PasswordHash)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("List() on empty table = %v, want empty slice", users)
	}

	seedTestUser(t, db, "a@example.com", true)
	seedTestUser(t, db, "b@example.com", false)

	users, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].Email != "a@example.com" {
		t.Errorf("List() = %+v", users)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; want 2", n, err)
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		fullName string
		wantErr  error
	}{
		{"valid", "user@example.com", "longenough", "User", nil},
		{"uppercase email ok", "User@Example.com", "longenough", "", nil},
		{"missing email", "", "longenough", "", ErrInvalidEmail},
		{"not an email", "user", "longenough", "", ErrInvalidEmail},
		{"display name form", "User <user@example.com>", "longenough", "", ErrInvalidEmail},
		{"short password", "user@example.com", "short", "", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.email, tt.password, tt.fullName)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRegistration() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
