// Package config provides configuration loading and structs for the chunkd server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking" toml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
}

// WatchConfig lists directories whose files are kept in sync with the corpus.
type WatchConfig struct {
	Directories []string `yaml:"directories" toml:"directories"`
	// Extensions limits which files are synced; empty means every supported format.
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Recursive  *bool    `yaml:"recursive" toml:"recursive"`
}

// RecursiveOrDefault returns whether subdirectories are watched; true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// StorageConfig holds paths for the database and the text-search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path" toml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path" toml:"bleve_index_path"`
}

// ChunkingConfig holds chunk window settings, in characters.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size" toml:"chunk_size"`
	// ChunkOverlap is nil when unset so an explicit 0 is not replaced by the default.
	ChunkOverlap *int `yaml:"chunk_overlap" toml:"chunk_overlap"`
}

// Overlap returns the configured overlap, 0 when unset.
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// Duration is a time.Duration read from strings such as "250ms" or "30s", in YAML and TOML alike.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of openai, gemini, onnx, mock, none.
	Provider   string `yaml:"provider" toml:"provider"`
	Model      string `yaml:"model" toml:"model"`
	BaseURL    string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env" toml:"api_key_env"`
	Dimensions int    `yaml:"dimensions" toml:"dimensions"`
	// ModelPath and MaxTokens apply to the onnx provider.
	ModelPath string `yaml:"model_path" toml:"model_path"`
	MaxTokens int    `yaml:"max_tokens" toml:"max_tokens"`
	CacheSize int    `yaml:"cache_size" toml:"cache_size"`
	// Concurrency bounds in-flight embedding calls per document (1..5).
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
	// BatchSize groups chunks into one provider request when the provider supports it.
	BatchSize         int      `yaml:"batch_size" toml:"batch_size"`
	MaxAttempts       int      `yaml:"max_attempts" toml:"max_attempts"`
	InitialBackoff    Duration `yaml:"initial_backoff" toml:"initial_backoff"`
	RequestsPerSecond float64  `yaml:"requests_per_second" toml:"requests_per_second"`
	Timeout           Duration `yaml:"timeout" toml:"timeout"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" toml:"default_limit"`
	MaxLimit     int `yaml:"max_limit" toml:"max_limit"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Files ending in .toml are parsed as TOML, everything else as YAML. A .env file next to
// the config, if present, is loaded into the environment without overriding existing values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if o := c.Chunking.Overlap(); o < 0 || o >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, %d), got %d", c.Chunking.ChunkSize, o)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Concurrency < 1 || c.Embedding.Concurrency > MaxEmbeddingConcurrency {
		return fmt.Errorf("embedding.concurrency must be in [1, %d], got %d", MaxEmbeddingConcurrency, c.Embedding.Concurrency)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderONNX, ProviderMock, ProviderNone:
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	return nil
}

// APIKey returns the provider secret from the configured environment variable.
func (e *EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
