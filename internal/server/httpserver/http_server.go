// Package httpserver wires the address API handlers into a running HTTP server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/walletpool/internal/config"
	derrors "git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/server/handlers"
	smw "git.home.luguber.info/inful/walletpool/internal/server/middleware"
)

// Options carries optional collaborators.
type Options struct {
	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler
	// HealthChecks are probed by GET /health.
	HealthChecks map[string]handlers.HealthCheck
	// History serves GET /v1/addresses/{address}/history when non-nil.
	History handlers.TimelineSource
	Logger  *slog.Logger
}

// Server serves the address API.
type Server struct {
	cfg     config.HTTPConfig
	handler http.Handler
	logger  *slog.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// New constructs the server and its routes. Nothing listens until Start.
func New(cfg config.HTTPConfig, svc handlers.AddressService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	adapter := derrors.NewHTTPErrorAdapter(logger)

	mux := http.NewServeMux()
	handlers.NewAddressHandlers(svc, adapter).Register(mux)
	handlers.NewMonitoringHandlers(time.Now(), opts.HealthChecks, opts.Metrics).Register(mux)
	if opts.History != nil {
		handlers.NewHistoryHandlers(opts.History, adapter).Register(mux)
	}

	return &Server{
		cfg:     cfg,
		handler: smw.Chain(logger, adapter)(mux),
		logger:  logger,
	}
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in the background. Binding errors are
// returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("http server already started")
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "failed to bind http listener").
			WithContext("addr", s.cfg.Addr).
			Build()
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srv := s.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("HTTP server started",
		slog.String("addr", ln.Addr().String()),
		slog.Int("max_connections", s.cfg.MaxConnections))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
