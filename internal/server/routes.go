package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes wires the four endpoints spec.md names under /api.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Post("/execute", s.executeTask)
			r.Post("/transition", s.transitionTask)
		})

		r.Get("/events", s.globalEvents)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/activity", s.sessionActivity)
		})
	})
}
