// Package server wires configuration, the capability registry and the HTTP
// transport into a runnable MCP listener.
// file: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marekdano/weather-mcp-server/internal/config"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/marekdano/weather-mcp-server/internal/metrics"
	"github.com/marekdano/weather-mcp-server/internal/registry"
	"github.com/marekdano/weather-mcp-server/internal/schema"
	"github.com/marekdano/weather-mcp-server/internal/tools"
	"github.com/marekdano/weather-mcp-server/internal/transport"
	"github.com/marekdano/weather-mcp-server/internal/weather"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const readHeaderTimeout = 10 * time.Second

// Server is the assembled MCP listener.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *registry.Registry
	adapter  *transport.Adapter
	metrics  *metrics.Collector
	router   chi.Router
}

// New builds every component from cfg. Capability registration errors are
// returned here, before anything listens.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	log := logger.WithField("component", "server")

	collector := metrics.NewCollector()
	validator := schema.NewValidator(logger)

	weatherClient, err := weather.NewClient(cfg.Weather, validator, logger, weather.WithRecorder(collector))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create weather client")
	}

	reg := registry.New(logger, registry.WithValidator(validator), registry.WithRecorder(collector))
	if err := tools.Register(reg, weatherClient); err != nil {
		log.Error("Capability registration failed.", "error", err)
		return nil, errors.Wrap(err, "failed to register capabilities")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	reg.Install(mcpServer)

	adapter := transport.NewAdapter(mcpServer, logger, transport.WithObserver(collector))

	s := &Server{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		adapter:  adapter,
		metrics:  collector,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Method(http.MethodPost, s.cfg.Server.Path, s.adapter)
	return r
}

// Handler returns the MCP router. Only POST on the configured path is served.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the sealed capability registry.
func (s *Server) Registry() *registry.Registry { return s.registry }

// Adapter returns the request lifecycle adapter.
func (s *Server) Adapter() *transport.Adapter { return s.adapter }

// Metrics returns the collector backing the optional metrics listener.
func (s *Server) Metrics() *metrics.Collector { return s.metrics }

// Run binds the configured port and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.Address())
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully within
// the configured timeout. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var metricsSrv *http.Server
	if addr := s.cfg.Metrics.Address; addr != "" {
		mln, err := net.Listen("tcp", addr)
		if err != nil {
			_ = ln.Close()
			return errors.Wrapf(err, "failed to listen for metrics on %s", addr)
		}
		metricsSrv = s.metricsServer()
		go func() {
			if err := metricsSrv.Serve(mln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics listener failed.", "error", err)
			}
		}()
		s.logger.Info("Metrics listener started.", "address", mln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	port := s.cfg.Server.Port
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	s.logger.Info(fmt.Sprintf("MCP Server running on http://localhost:%d%s", port, s.cfg.Server.Path),
		"port", port, "path", s.cfg.Server.Path)

	select {
	case err := <-errCh:
		s.shutdownMetrics(metricsSrv)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.shutdownMetrics(metricsSrv)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown error")
	}
	s.logger.Info("Server shutdown complete.")
	return nil
}

func (s *Server) metricsServer() *http.Server {
	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
}

func (s *Server) shutdownMetrics(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("Metrics listener shutdown failed.", "error", err)
	}
}
