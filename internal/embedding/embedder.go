// Package embedding provides the embedding provider abstraction, its backends
// (OpenAI-compatible HTTP, Gemini, local ONNX, mock), and the retry and cache decorators.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/chunkd/internal/models"
)

// Embedder produces vector embeddings for text.
//
// Errors are classified with the models taxonomy: models.ErrQuotaExceeded,
// models.ErrTransient, models.ErrInvalidInput, or models.ErrUnavailable.
// EmbedBatch either returns one vector per text, in order, or an error for the whole batch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Purger is implemented by embedders holding cached vectors.
type Purger interface {
	Purge()
}

// embedEach embeds texts one by one; used by providers without a native batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// checkDimensions rejects vectors whose length differs from the deployment dimension.
func checkDimensions(vecs [][]float32, dims int) error {
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", models.ErrInvalidInput, i, len(v), dims)
		}
	}
	return nil
}
