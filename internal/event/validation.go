package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const maxNameLength = 100

// ValidateInput checks a create payload.
func ValidateInput(in Input) error {
	if err := ValidateName(in.Name); err != nil {
		return err
	}
	if err := ValidateTrigger(in.Trigger); err != nil {
		return err
	}
	if err := ValidateActions(in.Actions); err != nil {
		return err
	}
	_, err := machineRef(in.MachineID)
	return err
}

// ValidatePatch checks a partial update.
func ValidatePatch(p Patch) error {
	if p.Name.Set {
		if p.Name.Null {
			return fmt.Errorf("%w: name cannot be null", ErrInvalidEvent)
		}
		if err := ValidateName(p.Name.Value); err != nil {
			return err
		}
	}
	if p.Enabled.Set && p.Enabled.Null {
		return fmt.Errorf("%w: enabled cannot be null", ErrInvalidEvent)
	}
	if p.Trigger.Set {
		if p.Trigger.Null {
			return fmt.Errorf("%w: trigger cannot be null", ErrInvalidEvent)
		}
		if err := ValidateTrigger(p.Trigger.Value); err != nil {
			return err
		}
	}
	if p.Actions.Set {
		if p.Actions.Null {
			return fmt.Errorf("%w: actions cannot be null", ErrInvalidEvent)
		}
		if err := ValidateActions(p.Actions.Value); err != nil {
			return err
		}
	}
	if p.MachineID.Set && !p.MachineID.Null {
		if _, err := machineRef(&p.MachineID.Value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateName checks an event name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidEvent)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidEvent, maxNameLength)
	}
	return nil
}

// ValidateTrigger checks that raw is a JSON object.
func ValidateTrigger(raw json.RawMessage) error {
	if !isJSON(raw, '{') {
		return fmt.Errorf("%w: trigger must be a JSON object", ErrInvalidEvent)
	}
	return nil
}

// ValidateActions checks that raw is a JSON array.
func ValidateActions(raw json.RawMessage) error {
	if !isJSON(raw, '[') {
		return fmt.Errorf("%w: actions must be a JSON array", ErrInvalidEvent)
	}
	return nil
}

func isJSON(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open && json.Valid(trimmed)
}
