// Package api exposes the boundary HTTP surface: the latest reading and
// analysis row, and the validated status-update endpoint. It is a thin
// read/validate/append wrapper over the same files the two loops share.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinestack/machine-monitor/internal/config"
)

// Server wraps the HTTP server and its lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer constructs an HTTP server bound to the configured address.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, handlers *Handlers) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /data", handlers.GetData)
	mux.HandleFunc("GET /status", handlers.GetStatus)
	mux.HandleFunc("POST /status", handlers.UpdateStatus)

	handler := WithRequestID(WithLogging(logger, mux))

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("address", s.cfg.Address))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
