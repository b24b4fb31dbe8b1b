package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for a generated password.
const seedPasswordBytes = 16

// SeedSuperuser creates the first superuser with the configured email if
// no account with that email exists. When password is empty a random one
// is generated and logged; it must be changed immediately.
// Returns the password used, or "" if seeding was skipped.
func SeedSuperuser(ctx context.Context, userRepo UserRepository, email, password string, logger *slog.Logger) (string, error) {
	_, err := userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.Info("first superuser exists, skipping seed", "email", NormaliseEmail(email))
		return "", nil
	case !errors.Is(err, ErrUserNotFound):
		return "", fmt.Errorf("looking up first superuser: %w", err)
	}

	generated := password == ""
	if generated {
		b := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(b)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	user := &User{
		Email:        email,
		FullName:     "Administrator",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("creating first superuser: %w", err)
	}

	if generated {
		logger.Warn("first superuser created with generated password",
			"email", user.Email,
			"password", password,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("first superuser created", "email", user.Email)
	}

	return password, nil
}
