package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/models"
)

func TestClearAll(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()

	var docs []*models.Document
	for _, n := range []int{6, 5, 7} {
		docs = append(docs, env.ingest(t, "Doc", n).Document)
	}
	require.Equal(t, 18, env.vectors.Size())

	stats, err := env.idx.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ClearStats{ChunksDeleted: 18, DocumentsAffected: 3}, stats)
	assert.Zero(t, env.vectors.Size())

	for _, doc := range docs {
		d, err := env.idx.Details(ctx, doc.ID)
		require.NoError(t, err)
		assert.Zero(t, d.Stats.TotalChunks)
		assert.Equal(t, doc.Title, d.Document.Title)
		assert.Equal(t, doc.Content, d.Document.Content)
	}

	hits, err := env.keywords.Search(ctx, "abcdefghi", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3, "text search still finds the documents")

	stats, err = env.idx.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ClearStats{}, stats)
}

func TestClearAll_purgesEmbeddingCache(t *testing.T) {
	inner := newScriptedEmbedder(nil)
	cached := embedding.NewCached(inner, 100)
	env := newTestEnv(t, cached)
	ctx := context.Background()

	res := env.ingest(t, "Doc", 2)
	calls := inner.callCount()
	_, err := env.idx.RegenerateOne(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, calls, inner.callCount(), "regenerate served from cache")

	_, err = env.idx.ClearAll(ctx)
	require.NoError(t, err)
	_, err = env.idx.RegenerateOne(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Greater(t, inner.callCount(), calls, "cache purged by clear")
}
