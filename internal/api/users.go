package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/auth"
)

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleSetUserActive activates or deactivates an account. Deactivation
// takes effect on the user's next request. Callers cannot deactivate
// themselves.
func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeValidation(w, "is_active is required")
		return
	}
	if !*req.IsActive && id == userIDFromContext(r.Context()) {
		writeBadRequest(w, "cannot deactivate your own account")
		return
	}

	if err := s.users.SetActive(r.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("set user active failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reloading user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityUser, id, userIDFromContext(r.Context()),
		map[string]any{"is_active": user.IsActive})
	writeJSON(w, http.StatusOK, user)
}
