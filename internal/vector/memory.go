package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force cosine index. The database is the source of truth; this
// index is rebuilt from it at startup and kept in step by ingest, regenerate and clear.
type MemoryIndex struct {
	dimensions int
	docs       map[string][]Entry
	size       int
	mu         sync.RWMutex
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions, docs: make(map[string][]Entry)}, nil
}

// ReplaceDocument validates every entry before touching the index, so a dimension
// mismatch leaves the previous vectors in place.
func (m *MemoryIndex) ReplaceDocument(_ context.Context, docID string, entries []Entry) error {
	stored := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("chunk %s: vector dimension mismatch: got %d, expected %d", e.ChunkID, len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		stored[i] = Entry{ChunkID: e.ChunkID, ChunkIndex: e.ChunkIndex, Vector: vec}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.size -= len(m.docs[docID])
	if len(stored) == 0 {
		delete(m.docs, docID)
		return nil
	}
	m.docs[docID] = stored
	m.size += len(stored)
	return nil
}

func (m *MemoryIndex) RemoveDocument(ctx context.Context, docID string) error {
	return m.ReplaceDocument(ctx, docID, nil)
}

// Search returns up to k hits ordered by descending cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || m.size == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, m.size)
	for docID, entries := range m.docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range entries {
			hits = append(hits, Hit{
				ChunkID:    e.ChunkID,
				DocumentID: docID,
				ChunkIndex: e.ChunkIndex,
				Score:      Cosine(query, e.Vector),
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string][]Entry)
	m.size = 0
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
