package machine

import (
	"encoding/json"

	"github.com/mostwo/mostwo-core/internal/store"
)

// DefaultStatus is the status given to machines created without one.
const DefaultStatus = "offline"

// Machine is a controllable networked device.
type Machine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Status  string `json:"status"`
}

// Input is the payload for creating a machine.
type Input struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Status  string `json:"status,omitempty"`
}

// Machine converts the input to a record, applying defaults.
func (in Input) Machine() *Machine {
	status := in.Status
	if status == "" {
		status = DefaultStatus
	}
	return &Machine{
		ID:      in.ID,
		Name:    in.Name,
		Type:    in.Type,
		Address: in.Address,
		Port:    in.Port,
		Status:  status,
	}
}

// Patch is a partial update. Only fields present in the payload are applied.
// ID is accepted in any JSON form so clients can send whole records back,
// but it is never applied.
type Patch struct {
	ID      json.RawMessage     `json:"id,omitempty"`
	Name    store.Field[string] `json:"name"`
	Type    store.Field[string] `json:"type"`
	Address store.Field[string] `json:"address"`
	Port    store.Field[int]    `json:"port"`
	Status  store.Field[string] `json:"status"`
}

// StatusUpdate is the payload for a status transition.
type StatusUpdate struct {
	Status string `json:"status"`
}
