package event

import (
	"encoding/json"

	"github.com/mostwo/mostwo-core/internal/store"
)

// Event is an automation rule. Trigger is a JSON object and Actions a
// JSON array, both opaque to the server.
type Event struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Enabled     bool            `json:"enabled"`
	Trigger     json.RawMessage `json:"trigger"`
	Actions     json.RawMessage `json:"actions"`
	MachineID   *string         `json:"machine_id"`
}

// Input is the payload for creating an event. Enabled defaults to true.
type Input struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Enabled     *bool           `json:"enabled,omitempty"`
	Trigger     json.RawMessage `json:"trigger"`
	Actions     json.RawMessage `json:"actions"`
	MachineID   *string         `json:"machine_id,omitempty"`
}

// Event converts the input to a record, applying defaults.
func (in Input) Event() *Event {
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	return &Event{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Enabled:     enabled,
		Trigger:     in.Trigger,
		Actions:     in.Actions,
		MachineID:   in.MachineID,
	}
}

// Patch is a partial update. Description and MachineID may be set to null;
// ID is accepted but never applied.
type Patch struct {
	ID          json.RawMessage              `json:"id,omitempty"`
	Name        store.Field[string]          `json:"name"`
	Description store.Field[string]          `json:"description"`
	Enabled     store.Field[bool]            `json:"enabled"`
	Trigger     store.Field[json.RawMessage] `json:"trigger"`
	Actions     store.Field[json.RawMessage] `json:"actions"`
	MachineID   store.Field[string]          `json:"machine_id"`
}
