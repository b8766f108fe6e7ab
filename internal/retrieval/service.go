// Package retrieval orchestrates the indexing and query pipeline: extract,
// chunk, embed, index, search.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/chunker"
	"github.com/docsetlabs/ragd/internal/embeddings"
	"github.com/docsetlabs/ragd/internal/extract"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

// DefaultTopK is the number of chunks returned when the caller does not ask
// for a specific count.
const DefaultTopK = 3

// ScoredChunk is one retrieved chunk with its similarity score.
type ScoredChunk struct {
	Text       string
	Score      float32
	DocumentID string
	ChunkIndex int
}

// Generator produces an answer from a query and its retrieved context. The
// service retrieves; generation is a downstream collaborator supplied by the
// caller.
type Generator interface {
	Generate(ctx context.Context, query string, contextChunks []string) (string, error)
}

// Config holds orchestrator tuning.
type Config struct {
	// MaxChars is the chunk window size. Zero uses the chunker default.
	MaxChars int

	// TopK is the default result count for Retrieve. Zero uses DefaultTopK.
	TopK int
}

// Service wires the pipeline together. Safe for concurrent use: every
// document's records carry unique ids, so concurrent indexing of distinct
// documents never interferes.
type Service struct {
	extractor *extract.Extractor
	provider  embeddings.Provider
	store     vectorstore.Store
	config    Config
	logger    *zap.Logger
}

// New creates the orchestrator. It fails fast when the embedding provider's
// dimension does not match the store's configured vector size, so the
// mismatch is caught at startup rather than on the first upsert.
func New(provider embeddings.Provider, store vectorstore.Store, extractor *extract.Extractor, config Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil || store == nil {
		return nil, errors.New("provider and store required")
	}
	if provider.Dimension() != store.VectorSize() {
		return nil, &vectorstore.DimensionError{
			Got:  provider.Dimension(),
			Want: store.VectorSize(),
		}
	}
	if config.MaxChars == 0 {
		config.MaxChars = chunker.DefaultMaxChars
	}
	if config.TopK == 0 {
		config.TopK = DefaultTopK
	}
	if extractor == nil {
		extractor = extract.New(logger)
	}
	return &Service{
		extractor: extractor,
		provider:  provider,
		store:     store,
		config:    config,
		logger:    logger,
	}, nil
}

// IndexText chunks, embeds and indexes raw text under the given document id.
// Returns the number of chunks indexed.
func (s *Service) IndexText(ctx context.Context, scope vectorstore.Scope, documentID string, text string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	if documentID == "" {
		return 0, errors.New("document id required")
	}

	chunks, err := chunker.Split(text, s.config.MaxChars)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", embeddings.ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			TenantID:   scope.TenantID,
			ScopeKey:   scope.Key,
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
		}
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		// Best effort: drop whatever landed so a half-indexed document is
		// never silently searchable.
		if cleanupErr := s.store.DeleteByDocument(ctx, scope, documentID); cleanupErr != nil {
			s.logger.Warn("cleanup after failed upsert",
				zap.String("document_id", documentID),
				zap.Error(cleanupErr),
			)
		}
		return 0, fmt.Errorf("indexing document %s: %w", documentID, err)
	}

	s.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.String("tenant_id", scope.TenantID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// IndexFile extracts text from the file at path and indexes it.
func (s *Service) IndexFile(ctx context.Context, scope vectorstore.Scope, documentID string, path string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}

	text, err := s.extractor.Extract(ctx, path, "")
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, chunker.ErrEmptyDocument
	}
	return s.IndexText(ctx, scope, documentID, text)
}

// Retrieve returns the texts of the most relevant chunks for the query, best
// match first. An empty slice means no indexed context matched; callers
// decide how to answer without context.
func (s *Service) Retrieve(ctx context.Context, scope vectorstore.Scope, query string, topK int) ([]string, error) {
	scored, err := s.RetrieveScored(ctx, scope, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(scored))
	for i, c := range scored {
		texts[i] = c.Text
	}
	return texts, nil
}

// RetrieveScored is Retrieve with scores and provenance attached.
func (s *Service) RetrieveScored(ctx context.Context, scope vectorstore.Scope, query string, topK int) ([]ScoredChunk, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	vector, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.store.Search(ctx, vector, scope, topK)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, len(results))
	for i, r := range results {
		scored[i] = ScoredChunk{
			Text:       r.Text,
			Score:      r.Score,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
		}
	}
	return scored, nil
}

// DeleteDocument removes every indexed chunk of the document.
func (s *Service) DeleteDocument(ctx context.Context, scope vectorstore.Scope, documentID string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.store.DeleteByDocument(ctx, scope, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	s.logger.Info("document removed from index",
		zap.String("document_id", documentID),
		zap.String("tenant_id", scope.TenantID),
	)
	return nil
}
