package auth

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	maxEmailLength    = 254
	maxFullNameLength = 100

	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8
)

// User represents an authenticated human account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"` // never serialised
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormaliseEmail lowercases and trims an email address for storage and lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address of sane length.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateRegistration checks the fields of a new account.
func ValidateRegistration(email, password, fullName string) error {
	if err := ValidateEmail(NormaliseEmail(email)); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(fullName) > maxFullNameLength {
		return ErrInvalidFullName
	}
	return nil
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidFullName    = errors.New("full name too long")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
