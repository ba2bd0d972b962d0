// Package search answers retrieval queries: semantic search over chunk vectors, with a
// document-level text search fallback.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/embedding"
	"github.com/hyperjump/chunkd/internal/keyword"
	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/storage"
	"github.com/hyperjump/chunkd/internal/vector"
)

const defaultSnippetLength = 300

// Engine runs retrieval queries.
type Engine struct {
	store        storage.Store
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	config       config.SearchConfig
	snippetLen   int
	logger       *zap.Logger
}

// NewEngine creates a search engine. keywordIndex may be nil, in which case the fallback
// returns no results.
func NewEngine(
	store storage.Store,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:        store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		snippetLen:   defaultSnippetLength,
		logger:       logger,
	}
}

// Search answers from the vector index when the provider can embed the query and any
// vectors exist. Otherwise it falls back to text search and records the reason.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}

	var (
		resp *models.SearchResponse
		err  error
	)
	if e.vectorIndex.Size() == 0 {
		resp, err = e.textSearch(ctx, query, "no embeddings indexed")
	} else {
		resp, err = e.semanticSearch(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	resp.Query = query.Query
	resp.QueryTime = time.Since(startTime).Milliseconds()
	return resp, nil
}

func (e *Engine) semanticSearch(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	vec, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e.logger.Warn("Query embedding failed; using text search", zap.Error(err))
		return e.textSearch(ctx, query, err.Error())
	}

	hits, err := e.vectorIndex.Search(ctx, vec, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	resp := &models.SearchResponse{Mode: models.SearchSemantic, Results: make([]*models.SearchResult, 0, len(hits))}
	docs := make(map[string]*docView)
	for _, h := range hits {
		view, err := e.loadDocView(ctx, docs, h.DocumentID)
		if err != nil {
			return nil, err
		}
		if view == nil {
			continue
		}
		content, ok := view.chunks[h.ChunkID]
		if !ok {
			// Regenerated since the hit was indexed.
			continue
		}
		resp.Results = append(resp.Results, &models.SearchResult{
			DocumentID: h.DocumentID,
			Title:      view.title,
			ChunkIndex: h.ChunkIndex,
			Content:    content,
			Score:      h.Score,
			Rank:       len(resp.Results) + 1,
		})
	}
	if len(hits) > 0 && len(resp.Results) == 0 {
		// Every vector outlived its chunk, e.g. chunks cleared by another process.
		e.logger.Warn("Vector index is stale; using text search", zap.Int("hits", len(hits)))
		return e.textSearch(ctx, query, "vector index is stale")
	}
	resp.Total = len(resp.Results)
	return resp, nil
}

type docView struct {
	title  string
	chunks map[string]string
}

// loadDocView returns nil for documents deleted after their vectors were indexed.
func (e *Engine) loadDocView(ctx context.Context, cache map[string]*docView, id string) (*docView, error) {
	if v, ok := cache[id]; ok {
		return v, nil
	}
	doc, err := e.store.GetDocument(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chunks, err := e.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &docView{title: doc.Title, chunks: make(map[string]string, len(chunks))}
	for _, c := range chunks {
		v.chunks[c.ID] = c.Content
	}
	cache[id] = v
	return v, nil
}

func (e *Engine) textSearch(ctx context.Context, query *models.SearchQuery, reason string) (*models.SearchResponse, error) {
	resp := &models.SearchResponse{
		Mode:           models.SearchText,
		Results:        []*models.SearchResult{},
		FallbackReason: reason,
	}
	if e.keywordIndex == nil {
		return resp, nil
	}

	hits, err := e.keywordIndex.Search(ctx, query.Query, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	for _, h := range hits {
		doc, err := e.store.GetDocument(ctx, h.DocumentID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, &models.SearchResult{
			DocumentID: doc.ID,
			Title:      doc.Title,
			ChunkIndex: -1,
			Content:    Highlight(doc.Content, query.Query, e.snippetLen),
			Score:      h.Score,
			Rank:       len(resp.Results) + 1,
		})
	}
	resp.Total = len(resp.Results)
	return resp, nil
}
