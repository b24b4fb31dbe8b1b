package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// loginRequest is the body of POST /auth/login. Username is the email
// address; form-encoded bodies with the same field names are accepted too.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// handleLogin exchanges email and password for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}

	user, err := s.authenticate(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, auth.ErrInvalidCredentials.Error())
		return
	case errors.Is(err, auth.ErrUserInactive):
		writeForbidden(w, auth.ErrUserInactive.Error())
		return
	case err != nil:
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ttl := s.tokenTTL()
	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("generating access token failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, user.ID, user.ID, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeBadRequest(w, "invalid form body")
			return req, false
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if !decodeJSON(w, r, &req) {
		return req, false
	}

	if req.Username == "" || req.Password == "" {
		writeValidation(w, "username and password are required")
		return req, false
	}
	return req, true
}

// authenticate checks credentials and upgrades outdated password hashes.
func (s *Server) authenticate(ctx context.Context, email, password string) (*auth.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, auth.ErrUserInactive
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
				s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
			}
		}
	}
	return user, nil
}

func (s *Server) tokenTTL() time.Duration {
	if s.secCfg.JWT.AccessTokenTTL <= 0 {
		return auth.DefaultAccessTokenTTL
	}
	return time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
}

// handleRegister creates an active, non-superuser account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidateRegistration(req.Email, req.Password, req.FullName); err != nil {
		writeValidation(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, auth.ErrEmailExists.Error())
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	s.auditLog(audit.ActionRegister, audit.EntityUser, user.ID, user.ID, map[string]any{"email": user.Email})
	writeJSON(w, http.StatusCreated, user)
}

// handleMe returns the authenticated user. It doubles as a token test.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"permissions": auth.PermissionsFor(user),
	})
}

// handleWSTicket issues a single-use WebSocket ticket for the caller, so
// the JWT never appears in a URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.tickets.issue(userIDFromContext(r.Context()))
	if err != nil {
		s.logger.Error("generating websocket ticket failed", "error", err)
		writeInternalError(w, "failed to generate ticket")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket tickets. Tickets are single-use and
// expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
	now     func() time.Time
}

type ticketEntry struct {
	userID    string
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{
		tickets: make(map[string]ticketEntry),
		now:     time.Now,
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

func (ts *ticketStore) issue(userID string) (string, error) {
	b := make([]byte, ticketBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	ticket := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{userID: userID, expiresAt: ts.now().Add(ticketTTL)}
	ts.mu.Unlock()
	return ticket, nil
}

// redeem consumes a ticket and reports whether it was valid.
func (ts *ticketStore) redeem(ticket string) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(ts.tickets, ticket)
	return entry, ts.now().Before(entry.expiresAt)
}

// sweep removes expired tickets and returns how many were removed.
func (ts *ticketStore) sweep() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	removed := 0
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
			removed++
		}
	}
	return removed
}

// cleanTicketsLoop sweeps expired tickets until ctx is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.tickets.sweep(); n > 0 {
				s.logger.Debug("expired websocket tickets removed", "count", n)
			}
		}
	}
}
