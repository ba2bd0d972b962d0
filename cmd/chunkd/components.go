package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/indexer"
	"github.com/hyperjump/chunkd/internal/keyword"
	"github.com/hyperjump/chunkd/internal/search"
	"github.com/hyperjump/chunkd/internal/storage"
	"github.com/hyperjump/chunkd/internal/vector"
	"github.com/hyperjump/chunkd/pkg/utils"
)

// Components holds initialized dependencies shared by the server and the commands.
type Components struct {
	Config       *config.Config
	ConfigPath   string
	Logger       *zap.Logger
	Storage      storage.Store
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// Close releases all resources.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// setup loads the config and builds every component. server selects the service logger;
// commands log warnings to stderr only.
func setup(ctx context.Context, server bool) (*Components, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	debug := cfg.Debug || debugFlag

	var logger *zap.Logger
	if server {
		logger, err = utils.NewLogger(debug)
	} else {
		logger, err = utils.NewCLILogger(debug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	c.ConfigPath = resolved
	return c, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}
	fail := func(err error) (*Components, error) {
		c.Close()
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	embedder, err := embedding.NewEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedding provider: %w", err))
	}
	c.Embedder = embedder

	vectorIndex, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	c.VectorIndex = vectorIndex

	if p := cfg.Storage.BleveIndexPath; p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fail(fmt.Errorf("failed to create index directory: %w", err))
		}
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}
	c.KeywordIndex = keywordIndex

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		return fail(err)
	}
	c.Indexer = indexer.NewIndexer(store, embedder, vectorIndex, keywordIndex, chunker,
		indexer.WithLogger(logger),
		indexer.WithConcurrency(cfg.Embedding.Concurrency),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
	)
	c.Engine = search.NewEngine(store, embedder, vectorIndex, keywordIndex, cfg.Search, logger)

	if _, err := c.Indexer.Warm(ctx); err != nil {
		return fail(fmt.Errorf("failed to load indexes: %w", err))
	}
	return c, nil
}
