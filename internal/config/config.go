// Package config provides configuration loading for ragd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates an invalid configuration value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration for the ragd daemon.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Storage     StorageConfig     `koanf:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxUploadBytes bounds multipart uploads. Default 32MB.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// EmbeddingConfig selects and configures the embedding provider.
//
// The provider is a fixed deployment-time choice. Vectors from different
// embedding spaces are not comparable, so the active provider must match the
// one that produced every vector already in the index.
type EmbeddingConfig struct {
	// Provider is "fastembed" (local ONNX) or "openai" (remote API).
	Provider string `koanf:"provider"`
	// Model is the embedding model name.
	Model string `koanf:"model"`
	// APIKey authenticates against the remote embedding API.
	APIKey Secret `koanf:"api_key"`
	// BaseURL overrides the remote API endpoint (OpenAI-compatible).
	BaseURL string `koanf:"base_url"`
	// CacheDir caches downloaded ONNX model files (fastembed only).
	CacheDir string `koanf:"cache_dir"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	// Backend is "qdrant" or "chromem".
	Backend string `koanf:"backend"`
	// Collection is the shared collection name. All tenants share it;
	// isolation is enforced by mandatory scope filtering.
	Collection string        `koanf:"collection"`
	Qdrant     QdrantConfig  `koanf:"qdrant"`
	Chromem    ChromemConfig `koanf:"chromem"`
}

// QdrantConfig holds Qdrant gRPC client settings.
type QdrantConfig struct {
	Host string `koanf:"host"`
	// Port is the gRPC port (6334), not the HTTP REST port (6333).
	Port    int           `koanf:"port"`
	UseTLS  bool          `koanf:"use_tls"`
	Timeout time.Duration `koanf:"timeout"`
}

// ChromemConfig holds settings for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// ChunkingConfig holds text segmentation settings.
type ChunkingConfig struct {
	// MaxChars is the fixed chunk window size in characters.
	MaxChars int `koanf:"max_chars"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	// TopK is the default number of chunks returned per query.
	TopK int `koanf:"top_k"`
}

// StorageConfig holds document metadata and raw file storage settings.
type StorageConfig struct {
	// DataDir holds the sqlite metadata database.
	DataDir string `koanf:"data_dir"`
	// UploadDir holds raw uploaded files.
	UploadDir string `koanf:"upload_dir"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 * 1024 * 1024
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "fastembed"
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.Model = "text-embedding-3-small"
		default:
			c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}

	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = "chromem"
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "ragd_chunks"
	}
	if c.VectorStore.Qdrant.Host == "" {
		c.VectorStore.Qdrant.Host = "localhost"
	}
	if c.VectorStore.Qdrant.Port == 0 {
		c.VectorStore.Qdrant.Port = 6334
	}
	if c.VectorStore.Qdrant.Timeout == 0 {
		c.VectorStore.Qdrant.Timeout = 15 * time.Second
	}

	if c.Chunking.MaxChars == 0 {
		c.Chunking.MaxChars = 2000
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Embedding.Provider {
	case "fastembed", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && !c.Embedding.APIKey.IsSet() {
		return fmt.Errorf("%w: embedding.api_key required for the openai provider", ErrInvalidConfig)
	}

	switch c.VectorStore.Backend {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("%w: unknown vectorstore backend %q", ErrInvalidConfig, c.VectorStore.Backend)
	}
	if c.VectorStore.Qdrant.Port <= 0 || c.VectorStore.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: qdrant port %d out of range", ErrInvalidConfig, c.VectorStore.Qdrant.Port)
	}

	if c.Chunking.MaxChars <= 0 {
		return fmt.Errorf("%w: chunking.max_chars must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidConfig)
	}

	return nil
}
