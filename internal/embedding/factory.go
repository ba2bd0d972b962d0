package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/models"
)

// NewEmbedder builds the provider named in cfg, wrapped with rate limiting, retries and
// an LRU cache. A provider that cannot be used (no credentials, provider "none", missing
// runtime) yields an Unavailable embedder rather than an error so the service still
// ingests documents for text search.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := newProvider(ctx, cfg)
	if err != nil {
		if !errors.Is(err, models.ErrUnavailable) {
			return nil, err
		}
		logger.Warn("Embedding provider unavailable; documents will be searchable by text only",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
		return NewUnavailable(cfg.Dimensions, err.Error()), nil
	}

	logger.Info("Embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", base.Dimensions()))

	retrying := NewRetrying(base, RetryPolicy{
		MaxAttempts:       cfg.MaxAttempts,
		InitialBackoff:    cfg.InitialBackoff.Std(),
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)
	return NewCached(retrying, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", models.ErrUnavailable, cfg.APIKeyEnv)
		}
		return NewOpenAIEmbedder(cfg.BaseURL, key, cfg.Model, cfg.Dimensions, cfg.Timeout.Std()), nil
	case config.ProviderGemini:
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", models.ErrUnavailable, cfg.APIKeyEnv)
		}
		return NewGeminiEmbedder(ctx, cfg.BaseURL, key, cfg.Model, cfg.Dimensions, cfg.Timeout.Std())
	case config.ProviderONNX:
		return NewLocalEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	case config.ProviderNone:
		return nil, fmt.Errorf("%w: embedding provider disabled", models.ErrUnavailable)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
