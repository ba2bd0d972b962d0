//go:build !cgo

package embedding

import (
	"fmt"

	"github.com/hyperjump/chunkd/internal/models"
)

// LocalEmbedder is unavailable in builds without cgo.
type LocalEmbedder = Unavailable

// NewLocalEmbedder reports models.ErrUnavailable when built without cgo.
func NewLocalEmbedder(_ string, _, _ int) (*LocalEmbedder, error) {
	return nil, fmt.Errorf("%w: onnx embedder requires CGO_ENABLED=1 and the onnxruntime library", models.ErrUnavailable)
}
