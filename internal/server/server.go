package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/souky-byte/opencode-studio/internal/project"
)

// Config holds HTTP server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration. WriteTimeout is
// zero, same as the teacher's own server: the activity/event SSE
// streams are long-lived and must not be cut off by a write deadline.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
	}
}

// Server is the HTTP server exposing the four task/event endpoints
// against the single currently-open project.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server

	projects *project.Manager
}

// New builds a Server routed against projects' currently active
// ProjectContext.
func New(cfg *Config, projects *project.Manager) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		projects: projects,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server. Blocks until Shutdown is called or the
// listener errors.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// currentProject fetches the active project context, writing a 503 if
// none is open yet (the orchestrator only ever drives one project at a
// time, opened once at startup by cmd/studio-server).
func (s *Server) currentProject(w http.ResponseWriter) (*project.ProjectContext, bool) {
	ctx, ok := s.projects.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "no project is open")
		return nil, false
	}
	return ctx, true
}
