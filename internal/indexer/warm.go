package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/vector"
)

// WarmStats reports what Warm loaded.
type WarmStats struct {
	Vectors           int
	SkippedDimensions int
	KeywordReindexed  int
}

const warmPageSize = 500

// Warm rebuilds the in-memory vector index from stored embeddings and re-indexes documents
// into the keyword index when its count differs from the store's. Embeddings whose length
// differs from the provider's dimension are skipped; a full regenerate fixes them.
func (idx *Indexer) Warm(ctx context.Context) (WarmStats, error) {
	var ws WarmStats
	dims := idx.vectorIndex.Dimensions()

	idx.clearMu.Lock()
	defer idx.clearMu.Unlock()

	idx.vectorIndex.Reset()
	var (
		currentDoc string
		entries    []vector.Entry
	)
	flush := func() error {
		if currentDoc == "" || len(entries) == 0 {
			return nil
		}
		if err := idx.vectorIndex.ReplaceDocument(ctx, currentDoc, entries); err != nil {
			return err
		}
		ws.Vectors += len(entries)
		entries = nil
		return nil
	}
	err := idx.store.ForEachEmbedding(ctx, func(c *models.DocumentChunk) error {
		if c.DocumentID != currentDoc {
			if err := flush(); err != nil {
				return err
			}
			currentDoc = c.DocumentID
		}
		if len(c.Embedding) != dims {
			ws.SkippedDimensions++
			return nil
		}
		entries = append(entries, vector.Entry{ChunkID: c.ID, ChunkIndex: c.ChunkIndex, Vector: c.Embedding})
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return ws, fmt.Errorf("warm vector index: %w", err)
	}
	if ws.SkippedDimensions > 0 {
		idx.logger.Warn("Stored embeddings do not match the configured dimension; run a full regenerate",
			zap.Int("skipped", ws.SkippedDimensions),
			zap.Int("dimensions", dims))
	}

	n, err := idx.reindexKeywords(ctx)
	if err != nil {
		return ws, err
	}
	ws.KeywordReindexed = n

	idx.logger.Info("Indexes warmed",
		zap.Int("vectors", ws.Vectors),
		zap.Int("keyword_reindexed", ws.KeywordReindexed))
	return ws, nil
}

func (idx *Indexer) reindexKeywords(ctx context.Context) (int, error) {
	if idx.keywordIndex == nil {
		return 0, nil
	}
	stored, err := idx.store.CountDocuments(ctx)
	if err != nil {
		return 0, err
	}
	indexed, err := idx.keywordIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("keyword doc count: %w", err)
	}
	if uint64(stored) == indexed {
		return 0, nil
	}

	total := 0
	for offset := 0; ; offset += warmPageSize {
		page, err := idx.store.ListDocuments(ctx, offset, warmPageSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}
		docs := make([]*models.Document, len(page))
		for i, s := range page {
			docs[i] = s.Document
		}
		if err := idx.keywordIndex.IndexBatch(ctx, docs); err != nil {
			return total, fmt.Errorf("keyword reindex: %w", err)
		}
		total += len(docs)
	}
}
