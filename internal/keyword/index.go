// Package keyword provides the full-text index used when semantic search is unavailable.
package keyword

import (
	"context"

	"github.com/hyperjump/chunkd/internal/models"
)

// Index is a document-level full-text index.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	// IndexBatch indexes many documents in one write.
	IndexBatch(ctx context.Context, docs []*models.Document) error
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single keyword search hit.
type Hit struct {
	DocumentID string
	Score      float64
}
