// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

// Package httpapi exposes the account and session API over HTTP. The
// handlers are thin: decoding, the session cookie adapter, and the
// fixed error payload contract live here; every decision sits in
// internal/auth.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/keyfold/keyfold/internal/auth"
	"github.com/keyfold/keyfold/internal/observability"
)

// Migrator is the schema management surface the API exposes.
type Migrator interface {
	// Pending lists migration versions not yet applied.
	Pending() ([]uint, error)
	// Up applies all pending migrations.
	Up() error
}

// ServerConfig carries the dependencies of the API server.
type ServerConfig struct {
	// Addr is the "host:port" listen address.
	Addr string

	// Users is the user directory.
	Users *auth.Directory

	// Auth authenticates credential pairs.
	Auth *auth.Service

	// Sessions issues and renews session tokens.
	Sessions *auth.SessionStore

	// StatusDB answers the status endpoint's introspection queries.
	StatusDB StatusDB

	// DatabaseName scopes the connection count in the status endpoint.
	DatabaseName string

	// Migrator backs the migrations endpoint. Nil disables it.
	Migrator Migrator

	// Metrics records request and domain counters. Nil disables
	// recording.
	Metrics *observability.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the Keyfold HTTP API server.
type Server struct {
	addr       string
	users      *auth.Directory
	auth       *auth.Service
	sessions   *auth.SessionStore
	statusDB   StatusDB
	dbName     string
	migrator   Migrator
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Users == nil {
		return nil, oops.Errorf("user directory is required")
	}
	if cfg.Auth == nil {
		return nil, oops.Errorf("authentication service is required")
	}
	if cfg.Sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     cfg.Addr,
		users:    cfg.Users,
		auth:     cfg.Auth,
		sessions: cfg.Sessions,
		statusDB: cfg.StatusDB,
		dbName:   cfg.DatabaseName,
		migrator: cfg.Migrator,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Handler returns the routed handler. Exposed for handler tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", s.instrument("/api/v1/users", s.handleUsers))
	mux.HandleFunc("/api/v1/users/", s.instrument("/api/v1/users/{username}", s.handleUserByUsername))
	mux.HandleFunc("/api/v1/user", s.instrument("/api/v1/user", s.handleCurrentUser))
	mux.HandleFunc("/api/v1/sessions", s.instrument("/api/v1/sessions", s.handleSessions))
	mux.HandleFunc("/api/v1/status", s.instrument("/api/v1/status", s.handleStatus))
	mux.HandleFunc("/api/v1/migrations", s.instrument("/api/v1/migrations", s.handleMigrations))
	mux.HandleFunc("/", s.instrument("other", s.handleUnknown))
	return mux
}

// Start begins serving. The returned channel receives any serve failure
// and closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleUnknown answers anything outside the API surface in the error
// payload contract instead of the mux's plain-text default.
func (s *Server) handleUnknown(w http.ResponseWriter, _ *http.Request) {
	s.writePayload(w, ErrorPayload{
		Name:       "NotFoundError",
		Message:    "The requested resource was not found.",
		Action:     "Check the requested path and try again.",
		StatusCode: http.StatusNotFound,
	})
}

// instrument records the request counter after the handler runs.
func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.metrics != nil {
			s.metrics.RequestsTotal.
				WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
				Inc()
		}
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// recordLogin increments the login counter when metrics are wired.
func (s *Server) recordLogin(success bool) {
	if s.metrics == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	s.metrics.LoginsTotal.WithLabelValues(result).Inc()
}

// requireMethod writes the 405 payload and returns false when the
// request method does not match.
func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		s.writePayload(w, payloadMethodNotAllowed)
		return false
	}
	return true
}
