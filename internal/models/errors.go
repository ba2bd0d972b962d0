package models

import "errors"

// Error taxonomy shared by the ingestion pipeline. Callers wrap these with context
// and test with errors.Is.
var (
	// ErrValidation marks missing or malformed input; nothing is persisted.
	ErrValidation = errors.New("validation error")
	// ErrEmptyContent marks text that yields no chunks.
	ErrEmptyContent = errors.New("empty content")
	// ErrQuotaExceeded marks a provider with no remaining credits or capacity.
	ErrQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrTransient marks a retryable provider failure (network, rate limit, 5xx).
	ErrTransient = errors.New("transient embedding error")
	// ErrInvalidInput marks text the provider refused to embed.
	ErrInvalidInput = errors.New("invalid embedding input")
	// ErrUnavailable marks a deployment with no embedding provider configured.
	ErrUnavailable = errors.New("embedding provider unavailable")
	// ErrNotFound marks an unknown document id.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a store failure; the current operation is aborted.
	ErrPersistence = errors.New("persistence error")
)

// IsDegraded reports whether err means embeddings cannot be produced for this run at all.
// Such errors downgrade ingestion to text-search fallback instead of failing it.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrUnavailable)
}
