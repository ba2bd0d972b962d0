// Package server provides the HTTP API for chunkd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/indexer"
	"github.com/hyperjump/chunkd/internal/search"
	"github.com/hyperjump/chunkd/internal/watcher"
)

// Server is the HTTP server for the chunkd API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	watch      *watcher.Watcher
	configPath string
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		indexer: idx,
		config:  cfg,
		logger:  logger,
	}
}

// SetWatcher enables the /watch/directories routes. Directory changes are written back to
// the config file at configPath unless it is empty.
func (s *Server) SetWatcher(w *watcher.Watcher, configPath string) {
	s.watch = w
	s.configPath = configPath
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Regeneration and clear run as long as they need; only reads are time-boxed.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))
		r.Get("/ingest", s.handleListDocuments)
		r.Get("/ingest/{id}/details", s.handleDetails)
		r.Post("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
	})

	r.Post("/ingest", s.handleIngest)
	r.Delete("/ingest/{id}", s.handleDeleteDocument)
	r.Post("/ingest/regenerate", s.handleRegenerate)
	r.Post("/ingest/regenerate-batch", s.handleRegenerateBatch)
	r.Get("/ingest/regenerate/ws", s.handleRegenerateWS)
	r.Post("/ingest/clear-rag", s.handleClear)
	r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
