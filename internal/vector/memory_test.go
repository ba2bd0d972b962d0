package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_ReplaceAndSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	if err := idx.ReplaceDocument(ctx, "d1", []Entry{
		{ChunkID: "a", ChunkIndex: 0, Vector: []float32{1, 0, 0}},
		{ChunkID: "b", ChunkIndex: 1, Vector: []float32{0.9, 0.1, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.ReplaceDocument(ctx, "d2", []Entry{
		{ChunkID: "c", ChunkIndex: 0, Vector: []float32{0, 1, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	hits, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "a" || hits[0].DocumentID != "d1" {
		t.Errorf("top hit should be a in d1, got %+v", hits[0])
	}
	if math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("expected cosine 1 for parallel vectors, got %f", hits[0].Score)
	}

	// Replacing shrinks the document's vectors.
	if err := idx.ReplaceDocument(ctx, "d1", []Entry{{ChunkID: "a2", Vector: []float32{0, 0, 1}}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("Size after replace=%d, want 2", idx.Size())
	}
}

func TestMemoryIndex_dimensionMismatchKeepsPrevious(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.ReplaceDocument(ctx, "d", []Entry{{ChunkID: "x", Vector: []float32{1, 0}}})

	err := idx.ReplaceDocument(ctx, "d", []Entry{
		{ChunkID: "y", Vector: []float32{1, 0}},
		{ChunkID: "z", Vector: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension error")
	}
	hits, _ := idx.Search(ctx, []float32{1, 0}, 5)
	if len(hits) != 1 || hits[0].ChunkID != "x" {
		t.Errorf("previous vectors should be kept, got %+v", hits)
	}

	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected query dimension error")
	}
}

func TestMemoryIndex_RemoveAndReset(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.ReplaceDocument(ctx, "x", []Entry{{ChunkID: "x0", Vector: []float32{1, 0}}})
	_ = idx.ReplaceDocument(ctx, "y", []Entry{{ChunkID: "y0", Vector: []float32{0, 1}}})

	if err := idx.RemoveDocument(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("expected size 1, got %d", idx.Size())
	}
	if err := idx.RemoveDocument(ctx, "missing"); err != nil {
		t.Errorf("removing unknown document: %v", err)
	}

	idx.Reset()
	if idx.Size() != 0 {
		t.Errorf("expected empty index after reset, got %d", idx.Size())
	}
	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("search on empty index: %v %v", hits, err)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal: %f", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector: %f", got)
	}
	if got := Cosine([]float32{3, 4}, []float32{6, 8}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel: %f", got)
	}
}
