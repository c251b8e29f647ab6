// Package api exposes the REST surface of the vocero server.
//
// Routes:
//
//   - POST /api/speak           — synthesise speech for a JSON request.
//   - GET  /api/speak/stream    — WebSocket variant streaming audio chunks.
//   - GET  /api/voices          — voice listing with optional filters.
//   - GET  /api/voices/stats    — directory snapshot statistics.
//   - POST /api/voices/clone    — register a cloned voice from WAV uploads.
//   - POST /api/voices/refresh  — force a directory refresh.
//   - GET  /healthz, /readyz    — liveness/readiness probes.
//   - GET  /metrics             — Prometheus scrape endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/vocero/internal/app"
	"github.com/MrWong99/vocero/internal/health"
	"github.com/MrWong99/vocero/internal/observe"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server serves the REST API over one [app.App].
type Server struct {
	app     *app.App
	log     *slog.Logger
	metrics *observe.Metrics
	handler http.Handler
	httpSrv *http.Server
}

// New creates a Server with all routes registered.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app: a,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.HandleFunc("GET /api/speak/stream", s.handleSpeakStream)
	mux.HandleFunc("GET /api/voices", s.handleVoices)
	mux.HandleFunc("GET /api/voices/stats", s.handleVoiceStats)
	mux.HandleFunc("POST /api/voices/clone", s.handleCloneVoice)
	mux.HandleFunc("POST /api/voices/refresh", s.handleRefresh)

	checkers := []health.Checker{health.DirectoryChecker(a.Directory())}
	for _, e := range a.Engines() {
		checkers = append(checkers, health.EngineChecker(e))
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Handler returns the fully wired HTTP handler, including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.httpSrv.ListenAndServe()
	}()

	s.log.Info("rest server listening", "addr", addr)

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api: shutdown: %w", err)
		}
		return nil
	}
}
