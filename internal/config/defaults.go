package config

import "time"

// Embedding provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderONNX   = "onnx"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// MaxEmbeddingConcurrency caps in-flight embedding calls so provider rate limits and
// quota failures are observed per chunk.
const MaxEmbeddingConcurrency = 5

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chunkd/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/chunkd/data/indices/bleve"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == nil {
		overlap := 0
		if cfg.Chunking.ChunkSize > 200 {
			overlap = 200
		}
		cfg.Chunking.ChunkOverlap = &overlap
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	applyProviderDefaults(&cfg.Embedding)
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 3
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.InitialBackoff == 0 {
		cfg.Embedding.InitialBackoff = Duration(500 * time.Millisecond)
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 10
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(30 * time.Second)
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 50
	}
}

func applyProviderDefaults(e *EmbeddingConfig) {
	switch e.Provider {
	case ProviderOpenAI:
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com/v1"
		}
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.Dimensions == 0 {
			e.Dimensions = 1536
		}
	case ProviderGemini:
		if e.Model == "" {
			e.Model = "gemini-embedding-001"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Dimensions == 0 {
			e.Dimensions = 768
		}
	case ProviderONNX:
		if e.ModelPath == "" {
			e.ModelPath = "/usr/local/var/chunkd/data/models/all-MiniLM-L6-v2.onnx"
		}
	}
	if e.Dimensions == 0 {
		e.Dimensions = 384
	}
}
