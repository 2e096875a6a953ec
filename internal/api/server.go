// SPDX-License-Identifier: MIT

// Package api exposes the last check result, run history and metrics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/check"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/health"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/history"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
)

const (
	rateLimitWindow   = time.Minute
	readHeaderTimeout = 5 * time.Second
)

// ResultProvider returns the most recent check result.
type ResultProvider interface {
	Last() (check.Result, bool)
}

// HistoryReader lists persisted runs, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Config wires a Server.
type Config struct {
	Listen    string
	RateLimit int // requests per minute per client IP on /api; 0 disables
	Version   string
	Results   ResultProvider
	History   HistoryReader // nil when history is disabled

	// Checkers are registered with the health manager after the built-in last-run check.
	Checkers []health.Checker
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the HTTP surface of portcheck serve.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	health *health.Manager
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan error
}

// New builds a server. It does not bind until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Results == nil {
		return nil, errors.New("api: result provider is required")
	}
	s := &Server{
		cfg:    cfg,
		logger: xglog.WithComponent("api"),
		health: health.NewManager(cfg.Version),
	}
	s.health.RegisterChecker(health.NewLastRunChecker(cfg.Results.Last))
	if p, ok := cfg.History.(pinger); ok {
		s.health.RegisterChecker(health.NewPingChecker("history", p.Ping))
	}
	for _, c := range cfg.Checkers {
		s.health.RegisterChecker(c)
	}
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(tracing("portcheck"))

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimit, rateLimitWindow))
		r.Get("/report", s.handleReport)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

// Start binds the listen address and serves in the background. Wait returns the serve error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.done = make(chan error, 1)
	s.mu.Unlock()

	s.logger.Info().
		Str(xglog.FieldEvent, "api.started").
		Str(xglog.FieldListen, ln.Addr().String()).
		Msg("HTTP server listening")

	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else if err != nil {
			s.logger.Error().Err(err).Str(xglog.FieldEvent, "api.failed").Msg("HTTP server failed")
			err = fmt.Errorf("serve: %w", err)
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Wait blocks until the server stops serving.
func (s *Server) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Str(xglog.FieldEvent, "api.stopped").Msg("HTTP server stopped")
	return nil
}
