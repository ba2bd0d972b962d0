package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/indexer"
	"github.com/hyperjump/chunkd/internal/storage"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Documents         int64              `json:"documents"`
	Chunks            int64              `json:"chunks"`
	Embeddings        int64              `json:"embeddings"`
	VectorIndexSize   int                `json:"vectorIndexSize"`
	KeywordIndexSize  uint64             `json:"keywordIndexSize"`
	EmbeddingsEnabled bool               `json:"embeddingsEnabled"`
	Config            ConfigSummary      `json:"config"`
	DiskUsage         *storage.DiskUsage `json:"diskUsage,omitempty"`
}

// ConfigSummary is the part of the configuration reported by status.
type ConfigSummary struct {
	Provider            string `json:"provider"`
	Model               string `json:"model,omitempty"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	ChunkSize           int    `json:"chunkSize"`
	ChunkOverlap        int    `json:"chunkOverlap"`
	DatabasePath        string `json:"databasePath"`
	BleveIndexPath      string `json:"bleveIndexPath"`
}

// CollectStatus gathers corpus counts and, when cfg is set, the configuration summary and
// disk usage. The CLI uses it directly when no server is running.
func CollectStatus(ctx context.Context, idx *indexer.Indexer, cfg *config.Config, logger *zap.Logger) (*StatusResponse, error) {
	stats, err := idx.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatusResponse{
		Documents:         stats.Documents,
		Chunks:            stats.Chunks,
		Embeddings:        stats.Embeddings,
		VectorIndexSize:   stats.VectorIndexSize,
		KeywordIndexSize:  stats.KeywordIndexSize,
		EmbeddingsEnabled: stats.EmbeddingsEnabled,
		Config: ConfigSummary{
			EmbeddingDimensions: stats.EmbeddingDims,
			ChunkSize:           stats.ChunkSize,
			ChunkOverlap:        stats.ChunkOverlap,
		},
	}
	if cfg == nil {
		return resp, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	resp.Config.Provider = cfg.Embedding.Provider
	resp.Config.Model = cfg.Embedding.Model
	resp.Config.DatabasePath = cfg.Storage.DatabasePath
	resp.Config.BleveIndexPath = cfg.Storage.BleveIndexPath
	usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		resp.DiskUsage = &usage
	}
	return resp, nil
}
