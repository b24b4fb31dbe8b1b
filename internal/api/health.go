package api

import (
	"context"
	"net/http"
	"time"
)

const (
	healthCacheTTL     = 2 * time.Second
	healthCheckTimeout = 3 * time.Second
)

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// handleHealth reports liveness and database reachability. Unhealthy
// storage answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := s.checkHealth()
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// checkHealth pings the database at most once per healthCacheTTL.
// Concurrent callers after expiry share one ping. The ping uses its own
// context so one cancelled caller cannot fail the others.
func (s *Server) checkHealth() healthResponse {
	s.healthMu.Lock()
	if time.Since(s.healthAt) < healthCacheTTL {
		cached := s.healthState
		s.healthMu.Unlock()
		return cached
	}
	s.healthMu.Unlock()

	v, _, _ := s.health.Do("health", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Version: s.version, Database: "ok"}
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
		}

		s.healthMu.Lock()
		s.healthState = resp
		s.healthAt = time.Now()
		s.healthMu.Unlock()
		return resp, nil
	})
	return v.(healthResponse) //nolint:forcetypeassert // only healthResponse is stored
}
