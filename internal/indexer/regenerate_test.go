package indexer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/chunkd/internal/models"
)

func chunkContents(t *testing.T, env *testEnv, id string) ([]string, []string) {
	t.Helper()
	chunks, err := env.store.GetChunksByDocumentID(context.Background(), id)
	require.NoError(t, err)
	contents := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		require.Equal(t, i, c.ChunkIndex)
		contents[i] = c.Content
		ids[i] = c.ID
	}
	return contents, ids
}

func TestRegenerateOne_isRepeatable(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	res := env.ingest(t, "Doc", 5)

	first, err := env.idx.RegenerateOne(ctx, res.Document.ID)
	require.NoError(t, err)
	contents1, ids1 := chunkContents(t, env, res.Document.ID)

	second, err := env.idx.RegenerateOne(ctx, res.Document.ID)
	require.NoError(t, err)
	contents2, ids2 := chunkContents(t, env, res.Document.ID)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, 5, second.Chunks)
	assert.Equal(t, contents1, contents2)
	assert.NotEqual(t, ids1, ids2, "chunk rows are replaced")
	assert.Equal(t, 5, env.vectors.Size())
}

func TestRegenerateOne_notFound(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	_, err := env.idx.RegenerateOne(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegenerateOne_backfillsAfterQuota(t *testing.T) {
	e := newScriptedEmbedder(alwaysFail(models.ErrQuotaExceeded))
	env := newTestEnv(t, e)
	res := env.ingest(t, "Later", 4)
	require.Zero(t, res.Stats.Embeddings)

	e.setFail(nil)
	stats, err := env.idx.RegenerateOne(context.Background(), res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmbeddingComplete, stats.Status)
	assert.Equal(t, 4, stats.Embeddings)
	assert.Equal(t, 4, env.vectors.Size())
}

func TestRegenerateMany_failFast(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	a := env.ingest(t, "A", 2).Document.ID
	b := env.ingest(t, "B", 3).Document.ID
	c := env.ingest(t, "C", 4).Document.ID
	_, cIDsBefore := chunkContents(t, env, c)
	_, aIDsBefore := chunkContents(t, env, a)

	env.idx.store = &failingStore{Store: env.store, failReplace: b}

	var events []models.Progress
	result := env.idx.RegenerateMany(ctx, []string{a, b, c}, func(p models.Progress) {
		events = append(events, p)
	})

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Results, 1)
	assert.Equal(t, a, result.Results[0].DocumentID)
	require.NotNil(t, result.Failed)
	assert.Equal(t, b, result.Failed.DocumentID)
	assert.ErrorIs(t, result.Failed.Err, models.ErrPersistence)

	_, aIDsAfter := chunkContents(t, env, a)
	assert.NotEqual(t, aIDsBefore, aIDsAfter, "a was regenerated")
	_, cIDsAfter := chunkContents(t, env, c)
	assert.Equal(t, cIDsBefore, cIDsAfter, "c is untouched")
	bContents, _ := chunkContents(t, env, b)
	assert.Len(t, bContents, 3, "b keeps its previous chunks")

	phases := make([]models.ProgressPhase, len(events))
	for i, e := range events {
		phases[i] = e.Phase
	}
	assert.Equal(t, []models.ProgressPhase{
		models.ProgressStarted, models.ProgressDone,
		models.ProgressStarted, models.ProgressFailed,
	}, phases)
	assert.Equal(t, b, events[3].DocumentID)
	assert.Equal(t, 2, events[3].Position)
}

func TestRegenerateMany_quotaIsNotAFailure(t *testing.T) {
	e := newScriptedEmbedder(nil)
	env := newTestEnv(t, e)
	a := env.ingest(t, "A", 2).Document.ID
	b := env.ingest(t, "B", 2).Document.ID

	e.setFail(alwaysFail(models.ErrQuotaExceeded))
	result := env.idx.RegenerateMany(context.Background(), []string{a, b}, nil)
	assert.Nil(t, result.Failed)
	assert.Equal(t, 2, result.Processed)
	for _, r := range result.Results {
		assert.Equal(t, models.EmbeddingQuotaExceeded, r.Stats.Status)
	}
	assert.Zero(t, env.vectors.Size())
}

func TestRegenerateAll(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	for _, title := range []string{"one", "two", "three"} {
		env.ingest(t, title, 2)
	}
	ids, err := env.store.ListDocumentIDs(context.Background())
	require.NoError(t, err)

	var started []string
	result, err := env.idx.RegenerateAll(context.Background(), func(p models.Progress) {
		if p.Phase == models.ProgressStarted {
			started = append(started, p.DocumentID)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Nil(t, result.Failed)
	assert.Equal(t, ids, started)
}

func TestRegenerateAndClear_concurrently(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, env.ingest(t, "doc", 6).Document.ID)
	}

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := env.idx.RegenerateOne(ctx, id)
				assert.NoError(t, err)
			}(id)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.idx.ClearAll(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total := 0
	for _, id := range ids {
		contents, _ := chunkContents(t, env, id)
		assert.Contains(t, []int{0, 6}, len(contents), "chunk set is all or nothing")
		total += len(contents)
	}
	assert.Equal(t, total, env.vectors.Size(), "vector index matches the store")
}
