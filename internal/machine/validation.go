package machine

import (
	"fmt"
	"strings"
)

const (
	maxNameLength    = 100
	maxTypeLength    = 50
	maxAddressLength = 50
	maxStatusLength  = 20
	minPort          = 1
	maxPort          = 65535
)

// ValidateInput checks a create payload. An empty status is allowed and
// defaults later; any other status must pass ValidateStatus.
func ValidateInput(in Input) error {
	if err := validateText("name", in.Name, maxNameLength); err != nil {
		return err
	}
	if err := validateText("type", in.Type, maxTypeLength); err != nil {
		return err
	}
	if err := validateText("address", in.Address, maxAddressLength); err != nil {
		return err
	}
	if err := ValidatePort(in.Port); err != nil {
		return err
	}
	if in.Status != "" {
		return ValidateStatus(in.Status)
	}
	return nil
}

// ValidatePatch checks a partial update. Every machine column is NOT NULL,
// so an explicit null is rejected.
func ValidatePatch(p Patch) error {
	for name, f := range map[string]struct{ set, null bool }{
		"name":    {p.Name.Set, p.Name.Null},
		"type":    {p.Type.Set, p.Type.Null},
		"address": {p.Address.Set, p.Address.Null},
		"port":    {p.Port.Set, p.Port.Null},
		"status":  {p.Status.Set, p.Status.Null},
	} {
		if f.set && f.null {
			return fmt.Errorf("%w: %s cannot be null", ErrInvalidMachine, name)
		}
	}

	if p.Name.Set {
		if err := validateText("name", p.Name.Value, maxNameLength); err != nil {
			return err
		}
	}
	if p.Type.Set {
		if err := validateText("type", p.Type.Value, maxTypeLength); err != nil {
			return err
		}
	}
	if p.Address.Set {
		if err := validateText("address", p.Address.Value, maxAddressLength); err != nil {
			return err
		}
	}
	if p.Port.Set {
		if err := ValidatePort(p.Port.Value); err != nil {
			return err
		}
	}
	if p.Status.Set {
		return ValidateStatus(p.Status.Value)
	}
	return nil
}

// ValidatePort checks that port is within 1-65535.
func ValidatePort(port int) error {
	if port < minPort || port > maxPort {
		return fmt.Errorf("%w: port must be between %d and %d", ErrInvalidMachine, minPort, maxPort)
	}
	return nil
}

// ValidateStatus checks a status label.
func ValidateStatus(status string) error {
	if strings.TrimSpace(status) == "" {
		return fmt.Errorf("%w: status cannot be empty", ErrInvalidMachine)
	}
	if len(status) > maxStatusLength {
		return fmt.Errorf("%w: status exceeds %d characters", ErrInvalidMachine, maxStatusLength)
	}
	return nil
}

func validateText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidMachine, field)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidMachine, field, maxLen)
	}
	return nil
}
