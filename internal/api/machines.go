package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mostwo/mostwo-core/internal/machine"
)

// handleListMachines returns a page of machines in creation order.
func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	machines, err := s.machines.List(r.Context(), skip, limit)
	if err != nil {
		s.writeRepoError(w, r, "list machines", err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

// handleCreateMachine rejects an address and port already in use before
// creating. The storage constraint reports the same conflict if two
// creates race past the check.
func (s *Server) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	var in machine.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := machine.ValidateInput(in); err != nil {
		writeValidation(w, err.Error())
		return
	}

	existing, err := s.machines.FindByAddressPort(r.Context(), in.Address, in.Port)
	if err != nil {
		s.writeRepoError(w, r, "create machine", err)
		return
	}
	if existing != nil {
		writeConflict(w, "a machine with this address and port already exists")
		return
	}

	m, err := s.machines.Create(r.Context(), in)
	if err != nil {
		s.writeRepoError(w, r, "create machine", err)
		return
	}

	s.notifyMachine(r, m, actionCreated)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMachine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleUpdateMachine applies a partial update. PUT and PATCH behave the same.
func (s *Server) handleUpdateMachine(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMachine(w, r)
	if !ok {
		return
	}

	var p machine.Patch
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := machine.ValidatePatch(p); err != nil {
		writeValidation(w, err.Error())
		return
	}

	updated, err := s.machines.Update(r.Context(), m, p)
	if err != nil {
		s.writeRepoError(w, r, "update machine", err)
		return
	}

	s.notifyMachine(r, updated, actionUpdated)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteMachine removes a machine and its events, returning the
// deleted machine. Each cascaded event is reported as event.deleted ahead
// of machine.deleted; events attached between the lookup and the delete
// go unreported.
func (s *Server) handleDeleteMachine(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMachine(w, r)
	if !ok {
		return
	}

	owned, err := s.events.ListAllByMachine(r.Context(), m.ID)
	if err != nil {
		s.writeRepoError(w, r, "delete machine", err)
		return
	}

	deleted, err := s.machines.Remove(r.Context(), m.ID)
	if err != nil {
		s.writeRepoError(w, r, "delete machine", err)
		return
	}

	for i := range owned {
		s.notifyEvent(r, &owned[i], actionDeleted, "cascade", true)
	}
	s.notifyMachine(r, deleted, actionDeleted)
	writeJSON(w, http.StatusOK, deleted)
}

// handleSetMachineStatus changes only the status.
func (s *Server) handleSetMachineStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadMachine(w, r)
	if !ok {
		return
	}

	var req machine.StatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := machine.ValidateStatus(req.Status); err != nil {
		writeValidation(w, err.Error())
		return
	}

	updated, err := s.machines.SetStatus(r.Context(), m, req.Status)
	if err != nil {
		s.writeRepoError(w, r, "set machine status", err)
		return
	}

	if s.influx != nil {
		s.influx.WriteMachineStatus(updated.ID, updated.Type, updated.Status)
	}
	s.notifyMachine(r, updated, actionStatusChanged, "previous_status", m.Status)
	writeJSON(w, http.StatusOK, updated)
}

// handleListMachineEvents returns a page of the events owned by a machine.
func (s *Server) handleListMachineEvents(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	m, ok := s.loadMachine(w, r)
	if !ok {
		return
	}

	events, err := s.events.ListByMachine(r.Context(), m.ID, skip, limit)
	if err != nil {
		s.writeRepoError(w, r, "list machine events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// loadMachine fetches the machine named by the {id} path parameter.
// A miss, including a malformed id, is written as 404.
func (s *Server) loadMachine(w http.ResponseWriter, r *http.Request) (*machine.Machine, bool) {
	m, err := s.machines.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRepoError(w, r, "get machine", err)
		return nil, false
	}
	if m == nil {
		writeNotFound(w, "machine not found")
		return nil, false
	}
	return m, true
}
