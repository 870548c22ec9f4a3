// Package api exposes the chat platform over HTTP.
//
// Two surfaces share one server:
//
//	Widget surface (authenticated by project API key):
//	  GET  /api/v1/chat/{project_id}/ws       - websocket chat stream
//	  POST /api/v1/chat/{project_id}/stream   - SSE chat stream
//	  POST /api/v1/ingestion/{project_id}/text - ingest text into the knowledge base
//	  POST /api/v1/messages/{message_id}/feedback - thumbs up/down on a reply
//
//	Admin surface (authenticated by bearer token):
//	  POST   /api/v1/projects
//	  GET    /api/v1/projects
//	  GET    /api/v1/projects/{project_id}
//	  PATCH  /api/v1/projects/{project_id}
//	  DELETE /api/v1/projects/{project_id}
//	  GET    /api/v1/conversations/sessions
//	  GET    /api/v1/conversations/sessions/{session_id}/messages
//
//	Probes: GET /health, GET /ready
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, logging, API key and admin auth
//   - limiter.go: per-API-key rate limiting
//   - chat.go: websocket and SSE chat transports
//   - ingest.go: knowledge ingestion endpoint
//   - projects.go: admin project CRUD
//   - conversations.go: admin conversation browsing, feedback endpoint
//   - health.go: liveness/readiness probes
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanternai/lantern/internal/chat"
	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Config contains the dependencies and settings for the API server.
type Config struct {
	Projects  *project.Store
	Sessions  *session.Store
	Knowledge *knowledge.Store
	Engine    *chat.Engine
	Pool      *pgxpool.Pool

	// AdminToken protects the admin surface. Empty disables admin routes.
	AdminToken string

	// Limiter throttles widget traffic per API key. Nil disables limiting.
	Limiter *RateLimiter

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Projects == nil {
		return errors.New("project store is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge store is required")
	}
	if cfg.Engine == nil {
		return errors.New("chat engine is required")
	}
	return nil
}

// Server is the HTTP server for the platform API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	auth := &authenticator{projects: cfg.Projects, limiter: cfg.Limiter, logger: logger}

	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(mux)
	NewChatHandler(cfg.Engine, cfg.Projects, auth, logger).RegisterRoutes(mux)
	NewIngestHandler(cfg.Knowledge, auth, logger).RegisterRoutes(mux)
	NewFeedbackHandler(cfg.Sessions, auth, logger).RegisterRoutes(mux)

	if cfg.AdminToken != "" {
		admin := adminMiddleware(cfg.AdminToken)
		NewProjectHandler(cfg.Projects, logger).RegisterRoutes(mux, admin)
		NewConversationHandler(cfg.Sessions, logger).RegisterRoutes(mux, admin)
	} else {
		logger.Warn("admin token not configured, admin endpoints disabled")
	}

	return &Server{mux: mux, logger: logger}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery, then logging, then routing.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		IdleTimeout:       IdleTimeout,
		// No ReadTimeout/WriteTimeout: websocket and SSE connections hold
		// the stream open for the lifetime of a conversation.
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
