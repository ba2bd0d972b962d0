package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/keyword"
	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/storage"
	"github.com/hyperjump/chunkd/internal/vector"
	"github.com/hyperjump/chunkd/pkg/utils"
)

const (
	defaultConcurrency = 3
	defaultBatchSize   = 16
	maxConcurrency     = 5
)

// Indexer coordinates chunking, embedding and persistence of documents, and owns the
// lifecycle of their derived data (regenerate, clear).
type Indexer struct {
	store        storage.Store
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	chunker      *Chunker
	validate     *validator.Validate

	concurrency int
	batchSize   int
	logger      *zap.Logger

	// clearMu is held for writing by ClearAll and for reading by every write to a
	// document's chunk set, so a clear never lands between a delete and its insert.
	clearMu sync.RWMutex
	docLock *keyedMutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithConcurrency bounds in-flight embedding requests per document (1..5).
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n >= 1 && n <= maxConcurrency {
			idx.concurrency = n
		}
	}
}

// WithBatchSize sets how many chunks are sent per embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n >= 1 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies. keywordIndex may be nil.
func NewIndexer(
	store storage.Store,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	chunker *Chunker,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:        store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      chunker,
		validate:     newValidator(),
		concurrency:  defaultConcurrency,
		batchSize:    defaultBatchSize,
		logger:       zap.NewNop(),
		docLock:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// Ingest validates, chunks and embeds a new document, then persists the document and its
// chunks in a single transaction. Provider quota exhaustion does not fail the ingest: the
// document is stored without embeddings and reported with status quota_exceeded.
func (idx *Indexer) Ingest(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	return idx.ingest(ctx, uuid.New().String(), input, false)
}

// ingest stores input under id. With replace set an existing document of that id is
// overwritten together with its chunk set.
func (idx *Indexer) ingest(ctx context.Context, id string, input *models.DocumentInput, replace bool) (*models.IngestResult, error) {
	if err := idx.validateInput(input); err != nil {
		return nil, err
	}

	content := Preprocess(input.Content)
	texts, err := idx.chunker.Chunk(content)
	if err != nil {
		// Empty content is also a validation failure of the request.
		return nil, fmt.Errorf("%w: content: %w", models.ErrValidation, err)
	}

	doc := &models.Document{
		ID:       id,
		Title:    strings.TrimSpace(input.Title),
		Content:  content,
		URL:      input.URL,
		Metadata: buildMetadata(input),
	}

	vecs, stats, err := idx.embedChunks(ctx, texts)
	if err != nil {
		return nil, err
	}
	chunks := buildChunks(doc.ID, texts, vecs)

	idx.clearMu.RLock()
	defer idx.clearMu.RUnlock()

	if replace {
		err = idx.store.UpsertDocumentWithChunks(ctx, doc, chunks)
	} else {
		err = idx.store.CreateDocumentWithChunks(ctx, doc, chunks)
	}
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	idx.updateVectors(ctx, doc.ID, chunks)
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Index(ctx, doc); err != nil {
			idx.logger.Warn("Keyword index update failed; it is rebuilt on next start",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	idx.logger.Info("Document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", stats.Chunks),
		zap.Int("embeddings", stats.Embeddings),
		zap.String("status", string(stats.Status)))
	return &models.IngestResult{Document: doc, Stats: stats}, nil
}

func buildMetadata(input *models.DocumentInput) models.Metadata {
	if len(input.Metadata) == 0 && input.Version == "" {
		return nil
	}
	md := make(models.Metadata, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		md[k] = v
	}
	if input.Version != "" {
		md["version"] = input.Version
	}
	return md
}

func buildChunks(docID string, texts []string, vecs [][]float32) []*models.DocumentChunk {
	chunks := make([]*models.DocumentChunk, len(texts))
	for i, text := range texts {
		chunks[i] = &models.DocumentChunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			Content:    text,
			ChunkIndex: i,
			Embedding:  vecs[i],
		}
	}
	return chunks
}

// updateVectors mirrors the chunks that carry embeddings into the vector index. The
// database stays authoritative, so a failure is logged rather than returned.
func (idx *Indexer) updateVectors(ctx context.Context, docID string, chunks []*models.DocumentChunk) {
	entries := make([]vector.Entry, 0, len(chunks))
	for _, c := range chunks {
		if c.HasEmbedding() {
			entries = append(entries, vector.Entry{ChunkID: c.ID, ChunkIndex: c.ChunkIndex, Vector: c.Embedding})
		}
	}
	if err := idx.vectorIndex.ReplaceDocument(ctx, docID, entries); err != nil {
		idx.logger.Warn("Vector index update failed", zap.String("document_id", docID), zap.Error(err))
	}
}

// Delete removes a document, its chunks and its index entries.
func (idx *Indexer) Delete(ctx context.Context, id string) error {
	unlock := idx.docLock.Lock(id)
	defer unlock()
	return idx.deleteLocked(ctx, id)
}

// deleteLocked removes id; the caller holds its document lock.
func (idx *Indexer) deleteLocked(ctx context.Context, id string) error {
	idx.clearMu.RLock()
	defer idx.clearMu.RUnlock()

	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := idx.vectorIndex.RemoveDocument(ctx, id); err != nil {
		idx.logger.Warn("Vector index removal failed", zap.String("document_id", id), zap.Error(err))
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Delete(ctx, id); err != nil {
			idx.logger.Warn("Keyword index removal failed", zap.String("document_id", id), zap.Error(err))
		}
	}
	idx.logger.Info("Document deleted", zap.String("document_id", id))
	return nil
}

// Details returns a document with per-chunk figures and aggregates.
func (idx *Indexer) Details(ctx context.Context, id string) (*models.DocumentDetails, error) {
	doc, err := idx.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	chunks, err := idx.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &models.DocumentDetails{
		Document: doc,
		Chunks:   make([]models.ChunkDetail, len(chunks)),
	}
	for i, c := range chunks {
		cd := models.ChunkDetail{
			Index:        c.ChunkIndex,
			Content:      c.Content,
			HasEmbedding: c.HasEmbedding(),
			WordCount:    utils.WordCount(c.Content),
			CharCount:    utils.CharCount(c.Content),
		}
		if cd.HasEmbedding {
			cd.EmbeddingDimensions = len(c.Embedding)
			details.Stats.ChunksWithEmbeddings++
		}
		details.Stats.TotalWords += cd.WordCount
		details.Stats.TotalCharacters += cd.CharCount
		details.Chunks[i] = cd
	}
	details.Stats.TotalChunks = len(chunks)
	details.Stats.AvgWordsPerChunk = utils.RoundedMean(details.Stats.TotalWords, len(chunks))
	return details, nil
}

// List returns documents newest first with chunk and embedding counts.
func (idx *Indexer) List(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error) {
	return idx.store.ListDocuments(ctx, offset, limit)
}

// Stats reports corpus and index sizes.
type Stats struct {
	Documents         int64  `json:"documents"`
	Chunks            int64  `json:"chunks"`
	Embeddings        int64  `json:"embeddings"`
	VectorIndexSize   int    `json:"vectorIndexSize"`
	KeywordIndexSize  uint64 `json:"keywordIndexSize"`
	EmbeddingDims     int    `json:"embeddingDimensions"`
	EmbeddingsEnabled bool   `json:"embeddingsEnabled"`
	ChunkSize         int    `json:"chunkSize"`
	ChunkOverlap      int    `json:"chunkOverlap"`
}

// Stats counts documents, chunks and embeddings.
func (idx *Indexer) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		VectorIndexSize: idx.vectorIndex.Size(),
		EmbeddingDims:   idx.embedder.Dimensions(),
		ChunkSize:       idx.chunker.ChunkSize(),
		ChunkOverlap:    idx.chunker.ChunkOverlap(),
	}
	_, unavailable := idx.embedder.(*embedding.Unavailable)
	s.EmbeddingsEnabled = !unavailable

	var err error
	if s.Documents, err = idx.store.CountDocuments(ctx); err != nil {
		return nil, err
	}
	if s.Chunks, err = idx.store.CountChunks(ctx); err != nil {
		return nil, err
	}
	if s.Embeddings, err = idx.store.CountEmbeddings(ctx); err != nil {
		return nil, err
	}
	if idx.keywordIndex != nil {
		n, err := idx.keywordIndex.DocCount()
		if err != nil {
			idx.logger.Warn("Keyword index count failed", zap.Error(err))
		}
		s.KeywordIndexSize = n
	}
	return s, nil
}

// isDetached reports whether err is a context error from the caller rather than a
// provider failure.
func isDetached(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
