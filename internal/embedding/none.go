package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/chunkd/internal/models"
)

// Unavailable stands in for a provider that is not configured (no credentials, provider "none").
// Every call fails with models.ErrUnavailable, which ingestion treats as text-search fallback.
type Unavailable struct {
	dimensions int
	reason     string
}

// NewUnavailable returns an embedder that always reports the provider as unavailable.
func NewUnavailable(dimensions int, reason string) *Unavailable {
	return &Unavailable{dimensions: dimensions, reason: reason}
}

func (u *Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: %s", models.ErrUnavailable, u.reason)
}

func (u *Unavailable) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: %s", models.ErrUnavailable, u.reason)
}

func (u *Unavailable) Dimensions() int { return u.dimensions }

func (u *Unavailable) Close() error { return nil }
