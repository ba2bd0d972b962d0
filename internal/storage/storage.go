// Package storage persists documents and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/chunkd/internal/models"
)

// Store is the persistence boundary for documents and chunks. Failures are wrapped with
// models.ErrPersistence; unknown ids yield models.ErrNotFound.
type Store interface {
	// Documents
	CreateDocumentWithChunks(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	// UpsertDocumentWithChunks writes doc under its id, replacing the stored fields and the
	// whole chunk set if the id exists. CreatedAt of an existing document is preserved.
	UpsertDocumentWithChunks(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error)
	// ListDocumentIDs returns every document id, oldest first.
	ListDocumentIDs(ctx context.Context) ([]string, error)

	// Chunks
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)
	// ReplaceChunks deletes the document's chunks and inserts the new set in one transaction.
	ReplaceChunks(ctx context.Context, docID string, chunks []*models.DocumentChunk) error
	// DeleteAllChunks removes every chunk of every document and reports what was removed.
	DeleteAllChunks(ctx context.Context) (models.ClearStats, error)
	// ForEachEmbedding calls fn for every chunk that carries an embedding.
	ForEachEmbedding(ctx context.Context, fn func(*models.DocumentChunk) error) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountEmbeddings(ctx context.Context) (int64, error)

	Close() error
}
