// Package server provides the HTTP API for Miru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/search"
)

// Server is the HTTP server for the Miru API.
type Server struct {
	engine *search.Engine
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *search.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/register", s.handleRegister)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/records/{id}", s.handleGetRecord)
	r.Delete("/api/v1/records/{id}", s.handleDeleteRecord)
	r.Post("/api/v1/clear", s.handleClear)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
