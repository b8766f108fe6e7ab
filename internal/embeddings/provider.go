// Package embeddings provides embedding generation via multiple providers.
//
// Supports FastEmbed (local ONNX) and OpenAI (remote API) providers. Factory
// pattern enables provider selection at runtime with automatic dimension
// detection for common models.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for embedding operations.
var (
	// ErrEmbeddingFailed indicates the provider failed to produce vectors.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrEmptyInput indicates empty input text or an empty batch.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Provider is the interface for embedding providers.
//
// EmbedDocuments returns one vector per input, in input order. All vectors
// from one provider have the same length, reported by Dimension.
type Provider interface {
	// EmbedDocuments generates embeddings for a batch of document chunks.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed" or "openai".
	Provider string
	// Model is the embedding model name.
	Model string
	// APIKey authenticates against the remote API (OpenAI only).
	APIKey string
	// BaseURL overrides the remote API endpoint (OpenAI only).
	BaseURL string
	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if the model is unknown.
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	if dim, ok := openAIModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	default:
		return 384
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
