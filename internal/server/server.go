// Package server implements the bridge's HTTP gateway: an SSE stream
// endpoint, a JSON-RPC message endpoint and health/status reporting.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opencode-ai/editorbridge/internal/session"
	"github.com/opencode-ai/editorbridge/internal/tool"
)

// Config holds server configuration.
type Config struct {
	// Host to bind. The bridge is meant for loopback only.
	Host string
	// Port to listen on.
	Port int
	// Version reported by initialize and /status.
	Version string
	// Branch, when set, supplies the current VCS branch for /status.
	Branch func() string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 3742,
	}
}

// Server is the HTTP gateway.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	registry  *tool.Registry
	sessions  *session.Manager
	startedAt time.Time
}

// New creates a new Server around a tool registry and session manager. The
// session manager is passed in rather than ambient so the server can be
// instantiated and tested in isolation.
func New(cfg *Config, registry *tool.Registry, sessions *session.Manager) *Server {
	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		registry:  registry,
		sessions:  sessions,
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	// All origins are permitted: the listener is loopback-only and the
	// clients are local automation.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"*"},
		OptionsPassthrough: true,
		MaxAge:             300,
	}))
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/sse", s.handleStream)
	r.Post("/message", s.handleMessage)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	// Preflight answers 204 after the CORS middleware has set its headers.
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start binds the listener and serves until Shutdown. A bind failure (port
// already in use) is returned immediately so the caller can surface it.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.Addr(), err)
	}

	s.httpSrv = &http.Server{
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE streams stay open indefinitely.
	}

	return s.httpSrv.Serve(ln)
}

// Shutdown gracefully shuts down the server and releases all sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
