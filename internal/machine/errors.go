package machine

import "errors"

var (
	// ErrMachineNotFound is returned when a machine ID does not exist.
	ErrMachineNotFound = errors.New("machine not found")

	// ErrAddressInUse is returned when another machine already uses the address and port.
	ErrAddressInUse = errors.New("a machine with this address and port already exists")

	// ErrInvalidMachine is returned when a payload fails validation.
	ErrInvalidMachine = errors.New("invalid machine")
)
