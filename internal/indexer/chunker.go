// Package indexer turns documents into chunks with embeddings and manages that derived data.
package indexer

import (
	"fmt"

	"github.com/hyperjump/chunkd/internal/models"
)

// Chunker splits normalized text into overlapping character windows that end on word
// boundaries.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap, both in characters.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrValidation, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrValidation, chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk preprocesses text and splits it. The returned chunks are substrings of
// Preprocess(text), in order; the i-th chunk becomes chunk index i.
func (c *Chunker) Chunk(text string) ([]string, error) {
	text = Preprocess(text)
	if text == "" {
		return nil, models.ErrEmptyContent
	}
	r := []rune(text)
	n := len(r)
	if n <= c.chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + c.chunkSize
		if end >= n {
			chunks = append(chunks, string(r[start:]))
			return chunks, nil
		}

		// Cut at the last space in the window; split a word only when it fills the window.
		cut := end
		for i := end; i > start; i-- {
			if r[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(r[start:cut]))

		next := cut - c.chunkOverlap
		if next <= start {
			next = cut
		}
		for next < cut && r[next-1] != ' ' {
			next++
		}
		for next < n && r[next] == ' ' {
			next++
		}
		start = next
	}
}

// ChunkSize returns the configured window size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the configured overlap.
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }
