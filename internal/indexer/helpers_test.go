package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/keyword"
	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/storage"
	"github.com/hyperjump/chunkd/internal/vector"
)

const testDims = 8

// scriptedEmbedder wraps the mock embedder with a per-text failure script.
type scriptedEmbedder struct {
	*embedding.MockEmbedder

	mu    sync.Mutex
	calls int
	fail  func(text string) error
}

func newScriptedEmbedder(fail func(string) error) *scriptedEmbedder {
	return &scriptedEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims), fail: fail}
}

func (s *scriptedEmbedder) setFail(fail func(string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *scriptedEmbedder) check(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail == nil {
		return nil
	}
	return s.fail(text)
}

func (s *scriptedEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.check(text); err != nil {
		return nil, err
	}
	return s.MockEmbedder.Embed(ctx, text)
}

// EmbedBatch fails the whole batch when any text fails, like a remote provider.
func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		for _, t := range texts {
			if err := fail(t); err != nil {
				return nil, err
			}
		}
	}
	return s.MockEmbedder.EmbedBatch(ctx, texts)
}

func alwaysFail(err error) func(string) error {
	return func(string) error { return err }
}

// failingStore fails ReplaceChunks for one document id.
type failingStore struct {
	storage.Store
	failReplace string
}

func (f *failingStore) ReplaceChunks(ctx context.Context, docID string, chunks []*models.DocumentChunk) error {
	if docID == f.failReplace {
		return fmt.Errorf("%w: disk full", models.ErrPersistence)
	}
	return f.Store.ReplaceChunks(ctx, docID, chunks)
}

type testEnv struct {
	idx      *Indexer
	store    *storage.SQLiteStore
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
	embedder embedding.Embedder
}

// newTestEnv builds an indexer whose chunker turns n copies of "abcdefghi " into n chunks.
func newTestEnv(t *testing.T, e embedding.Embedder, opts ...IndexerOption) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "chunkd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	vecs, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })

	chunker, err := NewChunker(10, 0)
	require.NoError(t, err)

	opts = append([]IndexerOption{WithLogger(zap.NewNop())}, opts...)
	return &testEnv{
		idx:      NewIndexer(store, e, vecs, kw, chunker, opts...),
		store:    store,
		vectors:  vecs,
		keywords: kw,
		embedder: e,
	}
}

// content returns text that the test chunker splits into exactly n chunks.
func content(n int) string {
	return strings.Repeat("abcdefghi ", n)
}

func (env *testEnv) ingest(t *testing.T, title string, chunks int) *models.IngestResult {
	t.Helper()
	res, err := env.idx.Ingest(context.Background(), &models.DocumentInput{Title: title, Content: content(chunks)})
	require.NoError(t, err)
	return res
}
