package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/auth"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("json body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
			Username: "USER@example.com", Password: testPassword,
		})
		expectStatus(t, w, http.StatusOK)

		got := decode[loginResponse](t, w)
		if got.TokenType != "bearer" || got.ExpiresIn != 15*60 {
			t.Errorf("response = %+v", got)
		}
		claims, err := auth.ParseToken(got.AccessToken, testSecret)
		if err != nil {
			t.Fatalf("ParseToken: %v", err)
		}
		if claims.Subject != env.user.ID {
			t.Errorf("subject = %q, want %q", claims.Subject, env.user.ID)
		}
	})

	t.Run("form body", func(t *testing.T) {
		form := url.Values{"username": {"admin@example.com"}, "password": {testPassword}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		expectStatus(t, w, http.StatusOK)
	})

	tests := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", loginRequest{Username: "user@example.com", Password: "wrong-password"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "nobody@example.com", Password: testPassword}, http.StatusUnauthorized},
		{"missing password", loginRequest{Username: "user@example.com"}, http.StatusUnprocessableEntity},
		{"invalid JSON", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body), tt.want)
		})
	}

	waitFor(t, "login audit entries", func() bool {
		logs, err := env.audit.List(context.Background(), audit.Filter{Action: audit.ActionLogin})
		return err == nil && logs.Total == 2
	})
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	if err := env.users.SetActive(context.Background(), env.user.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Username: "user@example.com", Password: testPassword,
	})
	expectStatus(t, w, http.StatusForbidden)

	// Existing tokens stop working too.
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/auth/me", env.userToken, nil), http.StatusForbidden)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Email: "New@Example.com", Password: "long-enough", FullName: "New User",
	})
	expectStatus(t, w, http.StatusCreated)

	got := decode[auth.User](t, w)
	if got.Email != "new@example.com" || !got.IsActive || got.IsSuperuser {
		t.Errorf("user = %+v", got)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("response leaks password hash")
	}

	tests := []struct {
		name string
		body registerRequest
		want int
	}{
		{"duplicate email", registerRequest{Email: "new@example.com", Password: "long-enough"}, http.StatusConflict},
		{"short password", registerRequest{Email: "other@example.com", Password: "short"}, http.StatusUnprocessableEntity},
		{"bad email", registerRequest{Email: "not-an-email", Password: "long-enough"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body), tt.want)
		})
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		path := "/api/v1/auth/me"
		if method == http.MethodPost {
			path = "/api/v1/auth/test-token"
		}
		t.Run(method, func(t *testing.T) {
			w := env.do(t, method, path, env.adminToken, nil)
			expectStatus(t, w, http.StatusOK)

			got := decode[struct {
				User        auth.User         `json:"user"`
				Permissions []auth.Permission `json:"permissions"`
			}](t, w)
			if got.User.ID != env.admin.ID {
				t.Errorf("user id = %q, want %q", got.User.ID, env.admin.ID)
			}
			if len(got.Permissions) != len(auth.PermissionsFor(env.admin)) {
				t.Errorf("permissions = %v", got.Permissions)
			}
		})
	}

	t.Run("foreign signature", func(t *testing.T) {
		token, err := auth.GenerateAccessToken(env.user, "some-other-secret-of-enough-length", time.Hour)
		if err != nil {
			t.Fatalf("GenerateAccessToken: %v", err)
		}
		expectStatus(t, env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil), http.StatusUnauthorized)
	})
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)

	t.Run("regular user forbidden", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodGet, "/api/v1/users", env.userToken, nil), http.StatusForbidden)
	})

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/users", env.adminToken, nil)
		expectStatus(t, w, http.StatusOK)
		if got := decode[struct {
			Count int `json:"count"`
		}](t, w); got.Count != 2 {
			t.Errorf("count = %d, want 2", got.Count)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/users/"+env.user.ID+"/active", env.adminToken, `{"is_active":false}`)
		expectStatus(t, w, http.StatusOK)
		if decode[auth.User](t, w).IsActive {
			t.Error("is_active = true after deactivation")
		}
		expectStatus(t, env.do(t, http.MethodGet, "/api/v1/machines", env.userToken, nil), http.StatusForbidden)
	})

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"self deactivation", env.admin.ID, `{"is_active":false}`, http.StatusBadRequest},
		{"missing field", env.user.ID, `{}`, http.StatusUnprocessableEntity},
		{"unknown user", "7f2c4f4e-0d3a-4c2b-9a57-0a7c3b1f8e21", `{"is_active":true}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodPut, "/api/v1/users/"+tt.id+"/active", env.adminToken, tt.body), tt.want)
		})
	}
}

func TestAuditLogs(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMachine(t, "Pi-1", "10.0.0.1", 80)

	waitFor(t, "create audit entry", func() bool {
		logs, err := env.audit.List(context.Background(), audit.Filter{EntityID: m.ID})
		return err == nil && logs.Total == 1
	})

	t.Run("superuser filters by entity", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/audit?entity_type=machine&action=create", env.adminToken, nil)
		expectStatus(t, w, http.StatusOK)

		got := decode[audit.ListResult](t, w)
		if got.Total != 1 || got.Logs[0].EntityID != m.ID {
			t.Errorf("audit = %+v", got)
		}
		if got.Logs[0].Details["name"] != "Pi-1" {
			t.Errorf("details = %v", got.Logs[0].Details)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodGet, "/api/v1/audit?limit=-5", env.adminToken, nil), http.StatusBadRequest)
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodGet, "/api/v1/audit", env.userToken, nil), http.StatusForbidden)
	})
}

func TestTicketStore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := newTicketStore()
	ts.now = func() time.Time { return now }

	ticket, err := ts.issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(ticket) != ticketBytes*2 {
		t.Errorf("ticket length = %d, want %d", len(ticket), ticketBytes*2)
	}

	entry, ok := ts.redeem(ticket)
	if !ok || entry.userID != "user-1" {
		t.Fatalf("redeem = %+v, %v", entry, ok)
	}
	if _, ok := ts.redeem(ticket); ok {
		t.Error("ticket redeemed twice")
	}

	expired, _ := ts.issue("user-2")
	fresh, _ := ts.issue("user-3")
	now = now.Add(ticketTTL + time.Second)
	if _, ok := ts.redeem(expired); ok {
		t.Error("expired ticket accepted")
	}

	ts.mu.Lock()
	ts.tickets[fresh] = ticketEntry{userID: "user-3", expiresAt: now.Add(time.Minute)}
	ts.tickets["stale"] = ticketEntry{userID: "user-4", expiresAt: now.Add(-time.Minute)}
	ts.mu.Unlock()

	if n := ts.sweep(); n != 1 {
		t.Errorf("sweep removed %d, want 1", n)
	}
	if _, ok := ts.redeem(fresh); !ok {
		t.Error("fresh ticket swept")
	}
}
