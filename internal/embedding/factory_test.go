package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/models"
)

func TestNewEmbedder_mock(t *testing.T) {
	cfg := config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 16, CacheSize: 8, MaxAttempts: 2}
	e, err := NewEmbedder(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())

	_, isPurger := e.(Purger)
	assert.True(t, isPurger, "cache layer should be exposed")

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestNewEmbedder_missingKeyIsUnavailable(t *testing.T) {
	t.Setenv("CHUNKD_TEST_MISSING_KEY", "")
	cfg := config.EmbeddingConfig{Provider: config.ProviderOpenAI, APIKeyEnv: "CHUNKD_TEST_MISSING_KEY", Dimensions: 8}
	e, err := NewEmbedder(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestNewEmbedder_none(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: config.ProviderNone, Dimensions: 8}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Unavailable{}, e)
}

func TestNewEmbedder_unknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "word2vec"}, nil)
	assert.Error(t, err)
}
