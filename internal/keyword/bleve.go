package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bolt "go.etcd.io/bbolt"

	"github.com/hyperjump/chunkd/internal/models"
)

// lockTimeout bounds the wait for the index file lock.
const lockTimeout = "1s"

// ErrLocked is returned when another process holds the index open.
var ErrLocked = errors.New("keyword index is locked by another process")

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

var _ Index = (*BleveIndex)(nil)

// bleveDoc is the indexed projection of a document.
type bleveDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming.
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("content", text)
	url := bleve.NewKeywordFieldMapping()
	url.IncludeInAll = false
	docMapping.AddFieldMappingsAt("url", url)

	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex opens the index at path, creating it if missing. An empty path creates an
// in-memory index.
// If the mapping changes, remove the index directory; it is rebuilt from the database at startup.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		// Another process holding the index fails the open instead of blocking forever.
		index, openErr := bleve.OpenUsing(path, map[string]interface{}{"bolt_timeout": lockTimeout})
		if errors.Is(openErr, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s (is the server running? pass --server)", ErrLocked, path)
		}
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func project(doc *models.Document) bleveDoc {
	return bleveDoc{Title: doc.Title, Content: doc.Content, URL: doc.URL}
}

// Index adds or replaces a document.
func (b *BleveIndex) Index(_ context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, project(doc))
}

// IndexBatch adds or replaces docs in a single batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, docs []*models.Document) error {
	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.ID, project(doc)); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over title and content, title hits weighted double.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	title.SetBoost(2)
	content := bleve.NewMatchQuery(query)
	content.SetField("content")

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(title, content))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{DocumentID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
