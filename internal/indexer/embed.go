package indexer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/chunkd/internal/models"
)

// embedChunks embeds texts in batches with bounded concurrency and returns one vector (or
// nil) per text plus the run's stats.
//
// The first quota or unavailable error stops the run: pending batches are not sent and
// every vector is dropped, so the document is stored without embeddings. Other provider
// errors only cost the chunks they concern. An error is returned only when ctx ends.
func (idx *Indexer) embedChunks(ctx context.Context, texts []string) ([][]float32, models.IngestStats, error) {
	stats := models.IngestStats{Chunks: len(texts)}
	vecs := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	var (
		mu       sync.Mutex
		degraded error
	)
	for start := 0; start < len(texts); start += idx.batchSize {
		end := min(start+idx.batchSize, len(texts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := idx.embedBatch(gctx, texts[start:end], vecs[start:end])
			if err != nil && models.IsDegraded(err) {
				mu.Lock()
				if degraded == nil {
					degraded = err
				}
				mu.Unlock()
			}
			return err
		})
	}
	err := g.Wait()

	switch {
	case degraded != nil:
		idx.logger.Warn("Embedding provider cannot serve this run; storing chunks without embeddings",
			zap.Int("chunks", len(texts)), zap.Error(degraded))
		for i := range vecs {
			vecs[i] = nil
		}
		stats.Status = models.EmbeddingQuotaExceeded
		if errors.Is(degraded, models.ErrUnavailable) {
			stats.Status = models.EmbeddingUnavailable
		}
		return vecs, stats, nil
	case err != nil:
		return nil, stats, err
	}

	for _, v := range vecs {
		if v != nil {
			stats.Embeddings++
		}
	}
	stats.Status = models.EmbeddingComplete
	if stats.Embeddings < stats.Chunks {
		stats.Status = models.EmbeddingPartial
	}
	return vecs, stats, nil
}

// embedBatch fills out for texts. A rejected batch is retried one text at a time so a
// single bad chunk does not cost its neighbours. A transient failure already went through
// the provider's own retries, so the batch is left without embeddings instead. Returns
// only degraded or context errors.
func (idx *Indexer) embedBatch(ctx context.Context, texts []string, out [][]float32) error {
	if len(texts) > 1 {
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			copy(out, vecs)
			return nil
		}
		if models.IsDegraded(err) || isDetached(err) {
			return err
		}
		if errors.Is(err, models.ErrTransient) {
			idx.logger.Warn("Embedding batch left without embeddings",
				zap.Int("size", len(texts)), zap.Error(err))
			return nil
		}
		idx.logger.Debug("Embedding batch failed; retrying chunks individually",
			zap.Int("size", len(texts)), zap.Error(err))
	}

	for i, text := range texts {
		vec, err := idx.embedder.Embed(ctx, text)
		if err == nil {
			out[i] = vec
			continue
		}
		if models.IsDegraded(err) || isDetached(err) {
			return err
		}
		idx.logger.Warn("Chunk left without embedding", zap.Error(err))
	}
	return nil
}
