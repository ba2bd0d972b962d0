package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/pkg/utils"
)

// GeminiEmbedder embeds text through the Gemini API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a Gemini API client for model. An empty baseURL uses the
// public endpoint; a zero timeout leaves requests bounded only by ctx.
func NewGeminiEmbedder(ctx context.Context, baseURL, apiKey, model string, dimensions int, timeout time.Duration) (*GeminiEmbedder, error) {
	opts := genai.HTTPOptions{BaseURL: baseURL}
	if timeout > 0 {
		opts.Timeout = &timeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", models.ErrUnavailable, err)
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single EmbedContent call.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: genai.Ptr(int32(g.dimensions)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyGeminiError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", models.ErrTransient, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: empty embedding at %d", models.ErrTransient, i)
		}
		vecs[i] = emb.Values
		// Truncated Gemini outputs are not unit length.
		if g.dimensions < 3072 {
			utils.NormalizeL2(vecs[i])
		}
	}
	if err := checkDimensions(vecs, g.dimensions); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (g *GeminiEmbedder) Dimensions() int {
	return g.dimensions
}

func (g *GeminiEmbedder) Close() error {
	return nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == http.StatusTooManyRequests && strings.Contains(msg, "quota"),
		apiErr.Status == "RESOURCE_EXHAUSTED" && strings.Contains(msg, "quota"):
		return fmt.Errorf("%w: %v", models.ErrQuotaExceeded, err)
	case apiErr.Code == http.StatusTooManyRequests,
		apiErr.Code == http.StatusRequestTimeout,
		apiErr.Code >= 500:
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
		strings.Contains(msg, "api key not valid"):
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
}
