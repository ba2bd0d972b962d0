package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/models"
)

func TestIngest_complete(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()

	res, err := env.idx.Ingest(ctx, &models.DocumentInput{
		Title:    "  Admissions 2025 ",
		Content:  "Admissions   open\nin March. " + content(3),
		URL:      "https://example.edu/admissions",
		Version:  "v2",
		Metadata: map[string]interface{}{"section": "news"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Document.ID)
	assert.Equal(t, "Admissions 2025", res.Document.Title)
	assert.Equal(t, "Admissions open in March. abcdefghi abcdefghi abcdefghi", res.Document.Content)
	assert.Equal(t, "v2", res.Document.Metadata["version"])
	assert.Equal(t, "news", res.Document.Metadata["section"])
	assert.Equal(t, models.EmbeddingComplete, res.Stats.Status)
	assert.Equal(t, res.Stats.Chunks, res.Stats.Embeddings)

	details, err := env.idx.Details(ctx, res.Document.ID)
	require.NoError(t, err)
	require.Len(t, details.Chunks, res.Stats.Chunks)
	for i, c := range details.Chunks {
		assert.Equal(t, i, c.Index)
		assert.True(t, c.HasEmbedding)
		assert.Equal(t, testDims, c.EmbeddingDimensions)
		assert.True(t, strings.Contains(res.Document.Content, c.Content))
	}
	assert.Equal(t, res.Stats.Chunks, details.Stats.ChunksWithEmbeddings)
	assert.Equal(t, res.Stats.Chunks, env.vectors.Size())

	hits, err := env.keywords.Search(ctx, "admissions", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, res.Document.ID, hits[0].DocumentID)
}

func TestIngest_validation(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()

	tests := []struct {
		name  string
		input models.DocumentInput
	}{
		{"missing title", models.DocumentInput{Content: "text"}},
		{"blank title", models.DocumentInput{Title: "   ", Content: "text"}},
		{"bad url", models.DocumentInput{Title: "T", Content: "text", URL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.idx.Ingest(ctx, &tt.input)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	n, err := env.store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_emptyContentCreatesNoDocument(t *testing.T) {
	e := newScriptedEmbedder(nil)
	env := newTestEnv(t, e)
	ctx := context.Background()

	for _, text := range []string{"", "  \n\t "} {
		_, err := env.idx.Ingest(ctx, &models.DocumentInput{Title: "Empty", Content: text})
		assert.ErrorIs(t, err, models.ErrEmptyContent)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
	n, _ := env.store.CountDocuments(ctx)
	assert.Zero(t, n)
	assert.Zero(t, e.callCount(), "provider must not be called")
}

func TestIngest_quotaExceededStoresChunksWithoutEmbeddings(t *testing.T) {
	e := newScriptedEmbedder(alwaysFail(fmt.Errorf("%w: insufficient_quota", models.ErrQuotaExceeded)))
	env := newTestEnv(t, e, WithBatchSize(2), WithConcurrency(1))
	ctx := context.Background()

	res := env.ingest(t, "Quota", 6)
	assert.Equal(t, 6, res.Stats.Chunks)
	assert.Zero(t, res.Stats.Embeddings)
	assert.Equal(t, models.EmbeddingQuotaExceeded, res.Stats.Status)
	assert.Equal(t, 1, e.callCount(), "no provider calls after the first quota error")

	details, err := env.idx.Details(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, details.Stats.TotalChunks)
	assert.Zero(t, details.Stats.ChunksWithEmbeddings)
	for _, c := range details.Chunks {
		assert.False(t, c.HasEmbedding)
	}
	assert.Zero(t, env.vectors.Size())
}

func TestIngest_quotaMidRunDropsAllEmbeddings(t *testing.T) {
	// The second batch runs out of quota after the first succeeded.
	e := newScriptedEmbedder(nil)
	e.setFail(func(text string) error {
		if strings.HasPrefix(text, "quota") {
			return models.ErrQuotaExceeded
		}
		return nil
	})
	env := newTestEnv(t, e, WithBatchSize(1), WithConcurrency(1))

	res, err := env.idx.Ingest(context.Background(), &models.DocumentInput{
		Title:   "Mixed",
		Content: "abcdefghi quotaaaaa abcdefghi",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Chunks)
	assert.Zero(t, res.Stats.Embeddings)
	assert.Equal(t, models.EmbeddingQuotaExceeded, res.Stats.Status)
}

func TestIngest_unavailableProvider(t *testing.T) {
	env := newTestEnv(t, embedding.NewUnavailable(testDims, "no key"))
	res := env.ingest(t, "Offline", 2)
	assert.Equal(t, models.EmbeddingUnavailable, res.Stats.Status)
	assert.Zero(t, res.Stats.Embeddings)
}

func TestIngest_singleChunkFailuresArePartial(t *testing.T) {
	for _, sentinel := range []error{models.ErrInvalidInput} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			e := newScriptedEmbedder(func(text string) error {
				if text == "badbadbad" {
					return sentinel
				}
				return nil
			})
			env := newTestEnv(t, e, WithBatchSize(4))

			res, err := env.idx.Ingest(context.Background(), &models.DocumentInput{
				Title:   "Partial",
				Content: "abcdefghi badbadbad abcdefghi abcdefghi",
			})
			require.NoError(t, err)
			assert.Equal(t, 4, res.Stats.Chunks)
			assert.Equal(t, 3, res.Stats.Embeddings)
			assert.Equal(t, models.EmbeddingPartial, res.Stats.Status)

			details, err := env.idx.Details(context.Background(), res.Document.ID)
			require.NoError(t, err)
			assert.False(t, details.Chunks[1].HasEmbedding)
			assert.True(t, details.Chunks[0].HasEmbedding)
			assert.Equal(t, 3, env.vectors.Size())
		})
	}
}

func TestIngest_transientBatchFailureIsNotRetriedPerChunk(t *testing.T) {
	e := newScriptedEmbedder(func(text string) error {
		if text == "badbadbad" {
			return models.ErrTransient
		}
		return nil
	})
	env := newTestEnv(t, e, WithBatchSize(4), WithConcurrency(1))

	res, err := env.idx.Ingest(context.Background(), &models.DocumentInput{
		Title:   "Flaky",
		Content: "abcdefghi badbadbad abcdefghi abcdefghi abcdefghi",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Stats.Chunks)
	assert.Equal(t, 1, res.Stats.Embeddings, "only the second batch is embedded")
	assert.Equal(t, models.EmbeddingPartial, res.Stats.Status)
	assert.Equal(t, 2, e.callCount(), "one call per batch, no per-chunk fallback")
	assert.Equal(t, 1, env.vectors.Size())
}

func TestIngest_cancelledContextFails(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.idx.Ingest(ctx, &models.DocumentInput{Title: "T", Content: content(2)})
	assert.ErrorIs(t, err, context.Canceled)
	n, _ := env.store.CountDocuments(context.Background())
	assert.Zero(t, n)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	keep := env.ingest(t, "Keep", 2)
	res := env.ingest(t, "Gone", 3)

	require.NoError(t, env.idx.Delete(ctx, res.Document.ID))

	_, err := env.idx.Details(ctx, res.Document.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	chunks, err := env.store.GetChunksByDocumentID(ctx, res.Document.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 2, env.vectors.Size())

	hits, _ := env.keywords.Search(ctx, "gone", 5)
	assert.Empty(t, hits)

	assert.ErrorIs(t, env.idx.Delete(ctx, res.Document.ID), models.ErrNotFound)
	_, err = env.idx.Details(ctx, keep.Document.ID)
	assert.NoError(t, err)
	assert.Zero(t, env.idx.docLock.size())
}

func TestDetails_stats(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	res, err := env.idx.Ingest(context.Background(), &models.DocumentInput{Title: "T", Content: "one two three four five"})
	require.NoError(t, err)

	d, err := env.idx.Details(context.Background(), res.Document.ID)
	require.NoError(t, err)
	// Chunks: "one two", "three four", "five".
	assert.Equal(t, 3, d.Stats.TotalChunks)
	assert.Equal(t, 5, d.Stats.TotalWords)
	assert.Equal(t, 2, d.Stats.AvgWordsPerChunk)
	assert.Equal(t, 7+10+4, d.Stats.TotalCharacters)
	assert.Equal(t, 2, d.Chunks[0].WordCount)
	assert.Equal(t, 7, d.Chunks[0].CharCount)
}

func TestListAndStats(t *testing.T) {
	e := newScriptedEmbedder(nil)
	env := newTestEnv(t, e)
	ctx := context.Background()
	env.ingest(t, "A", 2)
	e.setFail(alwaysFail(models.ErrQuotaExceeded))
	env.ingest(t, "B", 3)

	list, err := env.idx.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byTitle := map[string]*models.DocumentSummary{}
	for _, s := range list {
		byTitle[s.Document.Title] = s
	}
	assert.Equal(t, 2, byTitle["A"].ChunksWithEmbeddings)
	assert.Equal(t, 3, byTitle["B"].TotalChunks)
	assert.Zero(t, byTitle["B"].ChunksWithEmbeddings)

	stats, err := env.idx.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Documents)
	assert.EqualValues(t, 5, stats.Chunks)
	assert.EqualValues(t, 2, stats.Embeddings)
	assert.Equal(t, 2, stats.VectorIndexSize)
	assert.EqualValues(t, 2, stats.KeywordIndexSize)
	assert.True(t, stats.EmbeddingsEnabled)
	assert.Equal(t, 10, stats.ChunkSize)
	assert.Zero(t, stats.ChunkOverlap)
}
