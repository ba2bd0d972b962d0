package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/chunkd/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeChunks(docID string, n int, withEmbedding func(i int) bool) []*models.DocumentChunk {
	chunks := make([]*models.DocumentChunk, n)
	for i := range chunks {
		chunks[i] = &models.DocumentChunk{
			ID:         fmt.Sprintf("%s_c%d", docID, i),
			DocumentID: docID,
			Content:    fmt.Sprintf("chunk %d", i),
			ChunkIndex: i,
		}
		if withEmbedding != nil && withEmbedding(i) {
			chunks[i].Embedding = models.Vector{float32(i), 0.5, -1}
		}
	}
	return chunks
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:       "doc1",
		Title:    "Title",
		Content:  "Content",
		URL:      "https://example.com/a",
		Metadata: models.Metadata{"version": "2"},
	}
	if err := store.CreateDocumentWithChunks(ctx, doc, makeChunks("doc1", 3, func(i int) bool { return i != 1 })); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() || !doc.UpdatedAt.Equal(doc.CreatedAt) {
		t.Errorf("timestamps not set: %+v", doc)
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Title" || got.URL != "https://example.com/a" || got.Metadata["version"] != "2" {
		t.Errorf("got %+v", got)
	}

	chunks, err := store.GetChunksByDocumentID(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
	}
	if !chunks[0].HasEmbedding() || chunks[1].HasEmbedding() || !chunks[2].HasEmbedding() {
		t.Error("embedding presence not preserved")
	}
	if len(chunks[2].Embedding) != 3 || chunks[2].Embedding[0] != 2 || chunks[2].Embedding[2] != -1 {
		t.Errorf("embedding round trip: %v", chunks[2].Embedding)
	}
}

func TestSQLiteStore_GetDocumentNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_CreateIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := makeChunks("doc1", 2, nil)
	chunks[1].ChunkIndex = 0 // violates UNIQUE(document_id, chunk_index)

	err := store.CreateDocumentWithChunks(ctx, &models.Document{ID: "doc1", Title: "T", Content: "C"}, chunks)
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("document persisted despite failed chunk insert: %d", n)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("chunks persisted: %d", n)
	}
}

func TestSQLiteStore_ReplaceChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{ID: "d1", Title: "T", Content: "C"}
	if err := store.CreateDocumentWithChunks(ctx, doc, makeChunks("d1", 4, nil)); err != nil {
		t.Fatal(err)
	}

	replacement := makeChunks("d1", 2, func(int) bool { return true })
	for _, c := range replacement {
		c.ID += "_v2"
	}
	if err := store.ReplaceChunks(ctx, "d1", replacement); err != nil {
		t.Fatal(err)
	}
	chunks, _ := store.GetChunksByDocumentID(ctx, "d1")
	if len(chunks) != 2 || chunks[0].ID != "d1_c0_v2" || !chunks[1].HasEmbedding() {
		t.Errorf("unexpected chunks after replace: %+v", chunks)
	}

	// A failing replacement leaves the previous set intact.
	bad := makeChunks("d1", 2, nil)
	bad[1].ChunkIndex = 0
	if err := store.ReplaceChunks(ctx, "d1", bad); !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	chunks, _ = store.GetChunksByDocumentID(ctx, "d1")
	if len(chunks) != 2 || chunks[0].ID != "d1_c0_v2" {
		t.Errorf("previous chunks not preserved: %+v", chunks)
	}

	if err := store.ReplaceChunks(ctx, "missing", nil); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{ID: "file:1", Title: "a.txt", Content: "old"}
	if err := store.UpsertDocumentWithChunks(ctx, doc, makeChunks("file:1", 3, nil)); err != nil {
		t.Fatal(err)
	}
	first, err := store.GetDocument(ctx, "file:1")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond)
	next := &models.Document{ID: "file:1", Title: "a.txt", Content: "new", Metadata: models.Metadata{"source_path": "/x/a.txt"}}
	replacement := makeChunks("file:1", 1, func(int) bool { return true })
	replacement[0].ID = "fresh"
	if err := store.UpsertDocumentWithChunks(ctx, next, replacement); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "file:1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "new" || got.Metadata["source_path"] != "/x/a.txt" {
		t.Errorf("document not overwritten: %+v", got)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", first.UpdatedAt, got.UpdatedAt)
	}
	chunks, _ := store.GetChunksByDocumentID(ctx, "file:1")
	if len(chunks) != 1 || chunks[0].ID != "fresh" {
		t.Errorf("chunk set not replaced: %+v", chunks)
	}
	if n, _ := store.CountDocuments(ctx); n != 1 {
		t.Errorf("documents = %d, want 1", n)
	}
}

func TestSQLiteStore_DeleteDocumentCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateDocumentWithChunks(ctx, &models.Document{ID: "d1", Title: "T", Content: "C"}, makeChunks("d1", 3, nil)); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("expected chunks to cascade, %d left", n)
	}
	if err := store.DeleteDocument(ctx, "d1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteStore_DeleteAllChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.CreateDocumentWithChunks(ctx, &models.Document{ID: "a", Title: "A", Content: "A"}, makeChunks("a", 5, nil))
	_ = store.CreateDocumentWithChunks(ctx, &models.Document{ID: "b", Title: "B", Content: "B"}, makeChunks("b", 3, nil))
	_ = store.CreateDocumentWithChunks(ctx, &models.Document{ID: "c", Title: "C", Content: "C"}, nil)

	stats, err := store.DeleteAllChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ChunksDeleted != 8 || stats.DocumentsAffected != 2 {
		t.Errorf("got %+v, want {8 2}", stats)
	}
	if n, _ := store.CountDocuments(ctx); n != 3 {
		t.Errorf("documents must be kept, got %d", n)
	}

	stats, err = store.DeleteAllChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (models.ClearStats{}) {
		t.Errorf("second clear: got %+v", stats)
	}
}

func TestSQLiteStore_ListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		doc := &models.Document{ID: id, Title: id, Content: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.CreateDocumentWithChunks(ctx, doc, makeChunks(id, i+1, func(j int) bool { return j == 0 })); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListDocuments(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Document.ID != "new" {
		t.Fatalf("expected newest first, got %d items", len(list))
	}
	if list[0].TotalChunks != 3 || list[0].ChunksWithEmbeddings != 1 {
		t.Errorf("counts for new: %+v", list[0])
	}

	page, _ := store.ListDocuments(ctx, 1, 1)
	if len(page) != 1 || page[0].Document.ID != "mid" {
		t.Errorf("pagination: %+v", page)
	}

	ids, err := store.ListDocumentIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "old" || ids[2] != "new" {
		t.Errorf("ids oldest first: %v", ids)
	}
}

func TestSQLiteStore_ForEachEmbeddingAndCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.CreateDocumentWithChunks(ctx, &models.Document{ID: "d", Title: "T", Content: "C"},
		makeChunks("d", 4, func(i int) bool { return i%2 == 0 }))

	var seen []int
	err := store.ForEachEmbedding(ctx, func(c *models.DocumentChunk) error {
		seen = append(seen, c.ChunkIndex)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 2 {
		t.Errorf("seen %v", seen)
	}

	if n, _ := store.CountChunks(ctx); n != 4 {
		t.Errorf("CountChunks = %d", n)
	}
	if n, _ := store.CountEmbeddings(ctx); n != 2 {
		t.Errorf("CountEmbeddings = %d", n)
	}

	stop := errors.New("stop")
	if err := store.ForEachEmbedding(ctx, func(*models.DocumentChunk) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}
