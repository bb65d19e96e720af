package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the HTTP route tree.
//
// The ingest endpoint and health check are unauthenticated: sensors push
// webhooks with no credential, and health probes come from the supervisor.
// The directory admin routes mutate alert routing, so they sit behind JWT
// bearer auth.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/ingest/event", s.handleIngestEvent)
		r.Get("/ws", s.handleWebSocket)

		// Protected directory admin routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleRegisterDevice)
				r.Get("/{mac}", s.handleGetDevice)
				r.Put("/{mac}", s.handleUpdateDevice)
				r.Delete("/{mac}", s.handleDeleteDevice)
			})
		})
	})

	return r
}

// handleHealth returns the service health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
