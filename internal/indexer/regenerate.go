package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/models"
)

// ProgressFunc receives an event before and after each document of a batch.
type ProgressFunc func(models.Progress)

// RegenerateOne re-chunks and re-embeds a stored document, replacing its chunk set in one
// transaction. The previous chunks survive any failure.
func (idx *Indexer) RegenerateOne(ctx context.Context, id string) (models.IngestStats, error) {
	unlock := idx.docLock.Lock(id)
	defer unlock()

	doc, err := idx.store.GetDocument(ctx, id)
	if err != nil {
		return models.IngestStats{}, err
	}
	texts, err := idx.chunker.Chunk(doc.Content)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("chunk document %s: %w", id, err)
	}
	vecs, stats, err := idx.embedChunks(ctx, texts)
	if err != nil {
		return models.IngestStats{}, err
	}
	chunks := buildChunks(id, texts, vecs)

	idx.clearMu.RLock()
	defer idx.clearMu.RUnlock()
	if err := idx.store.ReplaceChunks(ctx, id, chunks); err != nil {
		return models.IngestStats{}, fmt.Errorf("replace chunks of %s: %w", id, err)
	}
	idx.updateVectors(ctx, id, chunks)

	idx.logger.Info("Document regenerated",
		zap.String("document_id", id),
		zap.Int("chunks", stats.Chunks),
		zap.Int("embeddings", stats.Embeddings),
		zap.String("status", string(stats.Status)))
	return stats, nil
}

// RegenerateMany regenerates ids strictly in order and stops at the first failure.
// Documents before the failure keep their new chunks; later ones are not touched.
// progress may be nil.
func (idx *Indexer) RegenerateMany(ctx context.Context, ids []string, progress ProgressFunc) *models.BatchResult {
	if progress == nil {
		progress = func(models.Progress) {}
	}
	result := &models.BatchResult{Total: len(ids), Results: make([]models.DocumentResult, 0, len(ids))}

	for i, id := range ids {
		progress(models.Progress{Phase: models.ProgressStarted, Position: i + 1, Total: len(ids), DocumentID: id})

		stats, err := idx.RegenerateOne(ctx, id)
		if err != nil {
			idx.logger.Warn("Regeneration batch stopped",
				zap.String("document_id", id),
				zap.Int("processed", result.Processed),
				zap.Int("total", len(ids)),
				zap.Error(err))
			result.Failed = &models.BatchFailure{DocumentID: id, Error: err.Error(), Err: err}
			progress(models.Progress{Phase: models.ProgressFailed, Position: i + 1, Total: len(ids), DocumentID: id, Error: err.Error()})
			return result
		}

		result.Processed++
		result.Results = append(result.Results, models.DocumentResult{DocumentID: id, Stats: stats})
		progress(models.Progress{Phase: models.ProgressDone, Position: i + 1, Total: len(ids), DocumentID: id, Stats: &stats})
	}
	return result
}

// RegenerateAll regenerates every document, oldest first.
func (idx *Indexer) RegenerateAll(ctx context.Context, progress ProgressFunc) (*models.BatchResult, error) {
	ids, err := idx.store.ListDocumentIDs(ctx)
	if err != nil {
		return nil, err
	}
	return idx.RegenerateMany(ctx, ids, progress), nil
}
