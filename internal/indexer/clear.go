package indexer

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/models"
)

// ClearAll deletes every chunk and embedding of every document. Documents and the keyword
// index are kept, so text search keeps working. Calling it again returns zero stats.
func (idx *Indexer) ClearAll(ctx context.Context) (models.ClearStats, error) {
	idx.clearMu.Lock()
	defer idx.clearMu.Unlock()

	stats, err := idx.store.DeleteAllChunks(ctx)
	if err != nil {
		return models.ClearStats{}, err
	}
	idx.vectorIndex.Reset()
	if p, ok := idx.embedder.(embedding.Purger); ok {
		p.Purge()
	}

	idx.logger.Info("All chunks cleared",
		zap.Int("chunks_deleted", stats.ChunksDeleted),
		zap.Int("documents_affected", stats.DocumentsAffected))
	return stats, nil
}
