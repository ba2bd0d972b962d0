// Package vector holds chunk embeddings in memory for similarity search.
package vector

import "context"

// Index stores chunk vectors grouped by document.
type Index interface {
	// ReplaceDocument swaps every vector of docID for entries. Empty entries removes the document.
	ReplaceDocument(ctx context.Context, docID string, entries []Entry) error
	RemoveDocument(ctx context.Context, docID string) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Reset drops every vector.
	Reset()
	Size() int
	Dimensions() int
	Close() error
}

// Entry is one chunk vector.
type Entry struct {
	ChunkID    string
	ChunkIndex int
	Vector     []float32
}

// Hit is a single search result.
type Hit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Score      float64
}
