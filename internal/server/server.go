// Package server provides the HTTP API for the library.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/config"
	"github.com/guildfordia/the-library/internal/query"
	"github.com/guildfordia/the-library/internal/ranking"
	"github.com/guildfordia/the-library/internal/storage"
	"github.com/guildfordia/the-library/internal/tuning"
)

// Server is the HTTP server for the library API.
type Server struct {
	engine  *ranking.Engine
	parser  *query.Parser
	tuning  *tuning.Manager
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *ranking.Engine,
	parser *query.Parser,
	manager *tuning.Manager,
	st storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		parser:  parser,
		tuning:  manager,
		storage: st,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the API route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/search/debug", s.handleSearchDebug)

	r.Post("/api/v1/tuning/search", s.handleTuningSearch)
	r.Get("/api/v1/tuning/config", s.handleGetConfig)
	r.Put("/api/v1/tuning/config", s.handleUpdateConfig)
	r.Get("/api/v1/tuning/profiles", s.handleListProfiles)
	r.Post("/api/v1/tuning/profiles", s.handleSaveProfile)
	r.Post("/api/v1/tuning/profiles/{name}/activate", s.handleActivateProfile)

	r.Get("/api/v1/books", s.handleListBooks)
	r.Get("/api/v1/books/{id}", s.handleGetBook)
	r.Get("/api/v1/quotes/{id}", s.handleGetQuote)
	r.Get("/api/v1/export", s.handleExport)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
