package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	// Model is the embedding model: text-embedding-3-small (default),
	// text-embedding-3-large, text-embedding-ada-002.
	Model string

	// APIKey authenticates against the API. Required.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for OpenAI-compatible
	// gateways. Empty uses the official endpoint.
	BaseURL string
}

// OpenAIProvider generates embeddings via the OpenAI embeddings API through
// langchaingo. Rate limits and transient failures surface as errors; callers
// decide whether to retry the enclosing operation.
type OpenAIProvider struct {
	embedder  *lcembeddings.EmbedderImpl
	modelName string
	dimension int
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key required for openai provider", ErrInvalidConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dimension, ok := openAIModelDimension(model)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported model %q (supported: text-embedding-3-small, text-embedding-3-large, text-embedding-ada-002)", ErrInvalidConfig, model)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:  embedder,
		modelName: model,
		dimension: dimension,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts in one API call.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return vector, nil
}

// Dimension returns the embedding dimension for the current model.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the provider holds no local resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

var _ Provider = (*OpenAIProvider)(nil)
