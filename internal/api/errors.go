package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mostwo/mostwo-core/internal/event"
	"github.com/mostwo/mostwo-core/internal/machine"
	"github.com/mostwo/mostwo-core/internal/store"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeValidation(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeRepoError maps repository failures onto the error envelope.
// Anything unrecognised is logged and reported as a bare 500.
func (s *Server) writeRepoError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, machine.ErrAddressInUse):
		writeConflict(w, "a machine with this address and port already exists")
	case errors.Is(err, event.ErrNameExists):
		writeConflict(w, "an event with this name already exists")
	case errors.Is(err, store.ErrConflict):
		writeConflict(w, "record conflicts with an existing record")
	case errors.Is(err, event.ErrMachineNotFound):
		writeValidation(w, "machine_id does not reference an existing machine")
	case errors.Is(err, machine.ErrMachineNotFound):
		writeNotFound(w, "machine not found")
	case errors.Is(err, event.ErrEventNotFound):
		writeNotFound(w, "event not found")
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w, "record not found")
	case errors.Is(err, machine.ErrInvalidMachine),
		errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, store.ErrInvalidID),
		errors.Is(err, store.ErrUnknownField):
		writeValidation(w, err.Error())
	default:
		s.logger.Error(op+" failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, op+" failed")
	}
}

// decodeJSON reads a single JSON value from the body. A failure has already
// been written to w when it returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
