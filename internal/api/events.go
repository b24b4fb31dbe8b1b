package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mostwo/mostwo-core/internal/event"
)

// handleListEvents returns a page of events, optionally only those owned
// by the machine_id query parameter.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var events []event.Event
	if machineID := r.URL.Query().Get("machine_id"); machineID != "" {
		events, err = s.events.ListByMachine(r.Context(), machineID, skip, limit)
	} else {
		events, err = s.events.List(r.Context(), skip, limit)
	}
	if err != nil {
		s.writeRepoError(w, r, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleListEnabledEvents returns every enabled event, unpaginated.
func (s *Server) handleListEnabledEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.ListEnabled(r.Context())
	if err != nil {
		s.writeRepoError(w, r, "list enabled events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleCreateEvent rejects a taken name before creating.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in event.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := event.ValidateInput(in); err != nil {
		writeValidation(w, err.Error())
		return
	}

	existing, err := s.events.FindByName(r.Context(), in.Name)
	if err != nil {
		s.writeRepoError(w, r, "create event", err)
		return
	}
	if existing != nil {
		writeConflict(w, "an event with this name already exists")
		return
	}

	e, err := s.events.Create(r.Context(), in)
	if err != nil {
		s.writeRepoError(w, r, "create event", err)
		return
	}

	s.notifyEvent(r, e, actionCreated)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	var p event.Patch
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := event.ValidatePatch(p); err != nil {
		writeValidation(w, err.Error())
		return
	}

	updated, err := s.events.Update(r.Context(), e, p)
	if err != nil {
		s.writeRepoError(w, r, "update event", err)
		return
	}

	s.notifyEvent(r, updated, actionUpdated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	deleted, err := s.events.Remove(r.Context(), e.ID)
	if err != nil {
		s.writeRepoError(w, r, "delete event", err)
		return
	}

	s.notifyEvent(r, deleted, actionDeleted)
	writeJSON(w, http.StatusOK, deleted)
}

// handleToggleEvent sets enabled from the required ?enabled= query
// parameter on the already-fetched event.
func (s *Server) handleToggleEvent(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeBadRequest(w, "enabled query parameter must be true or false")
		return
	}

	e, ok := s.loadEvent(w, r)
	if !ok {
		return
	}

	updated, err := s.events.SetEnabled(r.Context(), e, enabled)
	if err != nil {
		s.writeRepoError(w, r, "toggle event", err)
		return
	}

	if s.influx != nil {
		var machineID string
		if updated.MachineID != nil {
			machineID = *updated.MachineID
		}
		s.influx.WriteEventEnabled(updated.ID, machineID, updated.Enabled)
	}
	s.notifyEvent(r, updated, actionToggled, "enabled", updated.Enabled)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) loadEvent(w http.ResponseWriter, r *http.Request) (*event.Event, bool) {
	e, err := s.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRepoError(w, r, "get event", err)
		return nil, false
	}
	if e == nil {
		writeNotFound(w, "event not found")
		return nil, false
	}
	return e, true
}
