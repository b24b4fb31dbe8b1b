package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mostwo/mostwo-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metrics.instrument)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		// Ticket-authenticated; browsers cannot set headers on upgrade requests.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/test-token", s.handleMe)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/machines", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermRecordRead)).Get("/", s.handleListMachines)
				r.With(s.requirePermission(auth.PermRecordWrite)).Post("/", s.handleCreateMachine)

				r.Route("/{id}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(s.requirePermission(auth.PermRecordRead))
						r.Get("/", s.handleGetMachine)
						r.Get("/events", s.handleListMachineEvents)
					})
					r.Group(func(r chi.Router) {
						r.Use(s.requirePermission(auth.PermRecordWrite))
						r.Put("/", s.handleUpdateMachine)
						r.Patch("/", s.handleUpdateMachine)
						r.Delete("/", s.handleDeleteMachine)
						r.Put("/status", s.handleSetMachineStatus)
					})
				})
			})

			r.Route("/events", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermRecordRead)).Get("/", s.handleListEvents)
				r.With(s.requirePermission(auth.PermRecordRead)).Get("/enabled", s.handleListEnabledEvents)
				r.With(s.requirePermission(auth.PermRecordWrite)).Post("/", s.handleCreateEvent)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermRecordRead)).Get("/", s.handleGetEvent)
					r.Group(func(r chi.Router) {
						r.Use(s.requirePermission(auth.PermRecordWrite))
						r.Put("/", s.handleUpdateEvent)
						r.Patch("/", s.handleUpdateEvent)
						r.Delete("/", s.handleDeleteEvent)
						r.Post("/toggle", s.handleToggleEvent)
					})
				})
			})

			r.With(s.requirePermission(auth.PermSystemStatus)).Get("/metrics", s.handleMetrics)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))
				r.Get("/", s.handleListUsers)
				r.Put("/{id}/active", s.handleSetUserActive)
			})
		})
	})

	return r
}
