package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/mostwo/mostwo-core/internal/event"
)

const (
	testTrigger = `{"type":"schedule","schedule":"* * * * *"}`
	testActions = `[{"type":"http_request","target_machine_id":"x"}]`
)

func (e *testEnv) createEvent(t *testing.T, name string, machineID *string) event.Event {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/events", e.userToken, event.Input{
		Name:      name,
		Trigger:   json.RawMessage(testTrigger),
		Actions:   json.RawMessage(testActions),
		MachineID: machineID,
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[event.Event](t, w)
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)

	t.Run("enabled defaults to true", func(t *testing.T) {
		e := env.createEvent(t, "Morning", &m.ID)
		if !e.Enabled {
			t.Error("enabled = false, want true")
		}
		if e.MachineID == nil || *e.MachineID != m.ID {
			t.Errorf("machine_id = %v, want %s", e.MachineID, m.ID)
		}
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate name", `{"name":"Morning","trigger":{},"actions":[]}`, http.StatusConflict},
		{"unknown machine", `{"name":"Evening","trigger":{},"actions":[],"machine_id":"7f2c4f4e-0d3a-4c2b-9a57-0a7c3b1f8e21"}`, http.StatusUnprocessableEntity},
		{"trigger not an object", `{"name":"Noon","trigger":[],"actions":[]}`, http.StatusUnprocessableEntity},
		{"actions not an array", `{"name":"Noon","trigger":{},"actions":{}}`, http.StatusUnprocessableEntity},
		{"malformed machine id", `{"name":"Dusk","trigger":{},"actions":[],"machine_id":"pi-1"}`, http.StatusUnprocessableEntity},
		{"no machine", `{"name":"Noon","trigger":{},"actions":[]}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/events", env.userToken, tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestEventPayloadsPassThrough(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "192.168.1.100", 8000)

	trigger := `{"type":"schedule","schedule":"* * * * *","extra":{"nested":[1,2.5,null,true]}}`
	actions := `[{"type":"http_request","target_machine_id":"` + m.ID + `"}]`
	w := env.do(t, http.MethodPost, "/api/v1/events", env.userToken,
		`{"name":"Morning","enabled":true,"trigger":`+trigger+`,"actions":`+actions+`,"machine_id":"`+m.ID+`"}`)
	expectStatus(t, w, http.StatusCreated)
	created := decode[event.Event](t, w)

	w = env.do(t, http.MethodGet, "/api/v1/events/"+created.ID, env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[event.Event](t, w)

	if !bytes.Equal(got.Trigger, []byte(trigger)) {
		t.Errorf("trigger = %s, want %s", got.Trigger, trigger)
	}
	if !bytes.Equal(got.Actions, []byte(actions)) {
		t.Errorf("actions = %s, want %s", got.Actions, actions)
	}
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)
	e := env.createEvent(t, "Morning", &m.ID)
	env.createEvent(t, "Evening", nil)
	path := "/api/v1/events/" + e.ID

	t.Run("clear machine with null", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, path, env.userToken, `{"machine_id":null,"description":"daily"}`)
		expectStatus(t, w, http.StatusOK)

		got := decode[event.Event](t, w)
		if got.MachineID != nil {
			t.Errorf("machine_id = %v, want nil", *got.MachineID)
		}
		if got.Description == nil || *got.Description != "daily" {
			t.Errorf("description = %v", got.Description)
		}
		if got.Name != "Morning" {
			t.Errorf("name = %q, want Morning", got.Name)
		}
	})

	t.Run("rename onto taken name", func(t *testing.T) {
		w := env.do(t, http.MethodPut, path, env.userToken, `{"name":"Evening"}`)
		expectStatus(t, w, http.StatusConflict)
	})

	t.Run("null name rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, path, env.userToken, `{"name":null}`)
		expectStatus(t, w, http.StatusUnprocessableEntity)
	})

	t.Run("unknown machine", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, path, env.userToken, `{"machine_id":"7f2c4f4e-0d3a-4c2b-9a57-0a7c3b1f8e21"}`)
		expectStatus(t, w, http.StatusUnprocessableEntity)
	})
}

func TestToggleEvent(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)
	e := env.createEvent(t, "Morning", &m.ID)
	other := env.createEvent(t, "Evening", nil)

	w := env.do(t, http.MethodPost, "/api/v1/events/"+e.ID+"/toggle?enabled=false", env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if decode[event.Event](t, w).Enabled {
		t.Error("enabled = true after disabling")
	}

	w = env.do(t, http.MethodGet, "/api/v1/events/enabled", env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	enabled := decode[[]event.Event](t, w)
	if len(enabled) != 1 || enabled[0].ID != other.ID {
		t.Errorf("enabled events = %+v, want only %s", enabled, other.ID)
	}

	env.points.mu.Lock()
	toggles := slices.Clone(env.points.toggles)
	env.points.mu.Unlock()
	if !slices.Equal(toggles, []bool{false}) {
		t.Errorf("toggle points = %v", toggles)
	}

	tests := []struct {
		name  string
		path  string
		want  int
	}{
		{"missing enabled", "/api/v1/events/" + e.ID + "/toggle", http.StatusBadRequest},
		{"bad enabled", "/api/v1/events/" + e.ID + "/toggle?enabled=maybe", http.StatusBadRequest},
		{"unknown event", "/api/v1/events/7f2c4f4e-0d3a-4c2b-9a57-0a7c3b1f8e21/toggle?enabled=true", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPost, tt.path, env.userToken, nil), tt.want)
		})
	}
}

func TestListEvents_ByMachine(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)
	owned := env.createEvent(t, "Morning", &m.ID)
	env.createEvent(t, "Evening", nil)

	w := env.do(t, http.MethodGet, "/api/v1/events", env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]event.Event](t, w); len(got) != 2 {
		t.Errorf("events = %d, want 2", len(got))
	}

	w = env.do(t, http.MethodGet, "/api/v1/events?machine_id="+m.ID, env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]event.Event](t, w); len(got) != 1 || got[0].ID != owned.ID {
		t.Errorf("machine events = %+v", got)
	}
}

func TestEvents_MachineIDSpelling(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)
	upper := strings.ToUpper(m.ID)

	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/machines/"+upper, env.userToken, nil), http.StatusOK)

	e := env.createEvent(t, "Morning", &upper)
	if e.MachineID == nil || *e.MachineID != m.ID {
		t.Fatalf("machine_id = %v, want %s", e.MachineID, m.ID)
	}

	w := env.do(t, http.MethodGet, "/api/v1/events?machine_id="+upper, env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]event.Event](t, w); len(got) != 1 || got[0].ID != e.ID {
		t.Errorf("events for %s = %+v", upper, got)
	}

	w = env.do(t, http.MethodGet, "/api/v1/events?machine_id=pi-1", env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]event.Event](t, w); len(got) != 0 {
		t.Errorf("events for malformed id = %+v", got)
	}

	w = env.do(t, http.MethodPatch, "/api/v1/events/"+e.ID, env.userToken, `{"machine_id":"pi-1"}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)
}

func TestDeleteEvent(t *testing.T) {
	env := newTestEnv(t)
	e := env.createEvent(t, "Morning", nil)

	w := env.do(t, http.MethodDelete, "/api/v1/events/"+e.ID, env.userToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[event.Event](t, w); got.ID != e.ID {
		t.Errorf("deleted id = %q", got.ID)
	}
	expectStatus(t, env.do(t, http.MethodDelete, "/api/v1/events/"+e.ID, env.userToken, nil), http.StatusNotFound)
}
