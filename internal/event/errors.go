package event

import "errors"

var (
	// ErrEventNotFound is returned when an event ID does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrNameExists is returned when another event already has the name.
	ErrNameExists = errors.New("an event with this name already exists")

	// ErrInvalidEvent is returned when a payload fails validation.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrMachineNotFound is returned when machine_id names no machine.
	ErrMachineNotFound = errors.New("referenced machine not found")
)
