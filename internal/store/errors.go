package store

import "errors"

var (
	// ErrNotFound is returned by Remove and Update when the row does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is returned when a write violates a UNIQUE constraint.
	ErrConflict = errors.New("store: unique constraint violated")

	// ErrReference is returned when a write violates a FOREIGN KEY constraint.
	ErrReference = errors.New("store: referenced record does not exist")

	// ErrUnknownField is returned when a change set names a column the schema lacks.
	ErrUnknownField = errors.New("store: unknown field")

	// ErrInvalidID is returned by Create when a caller-supplied id is not a UUID.
	ErrInvalidID = errors.New("store: invalid id")
)
