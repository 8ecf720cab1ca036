// Package server assembles the HTTP surface of the replication service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lakeshift/relay/internal/server/handlers"
	"github.com/lakeshift/relay/internal/server/middleware"
	"github.com/lakeshift/relay/pkg/match"
)

// Options configures the HTTP server.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	Logger  *zap.Logger
	Engine  handlers.Replicator
	Guard   *match.Guard
	Health  *handlers.HealthManager
	Version handlers.VersionInfo
}

// Server is the replication service's HTTP server.
type Server struct {
	opts   Options
	router chi.Router
	http   *http.Server
	log    *zap.Logger
}

// New builds the server and its route table.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(opts.Version.Version)
	}

	s := &Server{opts: opts, log: opts.Logger}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.Recovery(s.log))

	r.NotFound(middleware.NotFoundHandler)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler)

	r.Get("/health", s.opts.Health.HealthHandler)
	r.Get("/health/live", s.opts.Health.LivenessHandler)
	r.Get("/health/ready", s.opts.Health.ReadinessHandler)
	r.Get("/version", handlers.VersionHandler(s.opts.Version))

	r.Route("/v1", func(r chi.Router) {
		if s.opts.RateLimitEnabled {
			r.Use(middleware.RateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst))
		}
		if s.opts.Engine != nil {
			r.Method(http.MethodPost, "/replicate",
				handlers.NewReplicateHandler(s.opts.Engine, s.opts.Guard, s.log))
		}
	})

	return r
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.opts.Port
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start runs the listener and blocks until the server stops.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
