package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("ragd.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty keeps the index
	// in memory only (tests, throwaway deployments).
	Path string

	// Compress enables gzip compression for persisted data.
	Compress bool

	// Collection is the shared collection name.
	Collection string

	// VectorSize is the embedding dimensionality. Must match the
	// configured embedding provider's output.
	VectorSize int
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if !collectionNamePattern.MatchString(c.Collection) {
		return fmt.Errorf("%w: collection name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidConfig, c.Collection)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go is an embeddable pure-Go vector database with no external
// service dependency, used for tests and single-node deployments. It applies
// the same shared-collection, scope-filtered isolation strategy as the
// Qdrant backend.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger
}

// NewChromemStore creates a ChromemStore, persisting under config.Path when
// set.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(config.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
	}

	logger.Info("chromem store initialized",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Int("vector_size", config.VectorSize),
	)

	return &ChromemStore{db: db, config: config, logger: logger}, nil
}

// embeddingFunc satisfies chromem's collection API. Records always arrive
// with precomputed vectors, so this must never run.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(context.Context, string) ([]float32, error) {
		return nil, errors.New("chromem store received un-embedded content")
	}
}

// collection returns the shared collection, creating it if needed.
func (s *ChromemStore) collection() (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(s.config.Collection, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", s.config.Collection, err)
	}
	return col, nil
}

// VectorSize returns the configured dimensionality.
func (s *ChromemStore) VectorSize() int {
	return s.config.VectorSize
}

// EnsureCollection idempotently creates the shared collection.
func (s *ChromemStore) EnsureCollection(ctx context.Context) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.EnsureCollection")
	defer span.End()

	span.SetAttributes(attribute.String("collection", s.config.Collection))

	if _, err := s.collection(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Upsert inserts or overwrites records by ID.
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.Int("record_count", len(records)),
		attribute.String("collection", s.config.Collection),
	)

	if err := validateRecords(records, s.config.VectorSize); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Content:   rec.Text,
			Embedding: rec.Vector,
			Metadata: map[string]string{
				payloadTenantID:   rec.TenantID,
				payloadScopeKey:   rec.ScopeKey,
				payloadDocumentID: rec.DocumentID,
				payloadChunkIndex: strconv.Itoa(rec.ChunkIndex),
			},
		}
	}

	// Concurrency of 1: embeddings are precomputed, nothing to parallelize.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Debug("upserted records",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(records)),
	)

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search performs filtered similarity search over the shared collection.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, scope Scope, topK int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("top_k", topK),
	)

	if err := scope.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(vector) != s.config.VectorSize {
		err := &DimensionError{Got: len(vector), Want: s.config.VectorSize}
		span.RecordError(err)
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// chromem rejects nResults above the collection's document count.
	count := col.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if topK > count {
		topK = count
	}

	hits, err := col.QueryEmbedding(ctx, vector, topK, scope.Filter(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		idx, _ := strconv.Atoi(hit.Metadata[payloadChunkIndex])
		results[i] = SearchResult{
			ID:         hit.ID,
			Text:       hit.Content,
			Score:      hit.Similarity,
			DocumentID: hit.Metadata[payloadDocumentID],
			ChunkIndex: idx,
		}
	}
	// Non-increasing score order. chromem returns hits in its own internal
	// order, so ties fall back to document id and chunk position, which
	// matches the order records were written in.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	span.SetAttributes(attribute.Int("result_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// DeleteByDocument removes all records of a document within the scope.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, scope Scope, documentID string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteByDocument")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.String("document_id", documentID),
	)

	if err := scope.Validate(); err != nil {
		span.RecordError(err)
		return err
	}
	if documentID == "" {
		return fmt.Errorf("document id required")
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return err
	}

	where := scope.Filter()
	where[payloadDocumentID] = documentID
	if err := col.Delete(ctx, where, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting document records: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the total number of records in the collection.
func (s *ChromemStore) Count(ctx context.Context) (uint64, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Count")
	defer span.End()

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return uint64(col.Count()), nil
}

// Close flushes nothing; chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}

// Ensure ChromemStore implements Store.
var _ Store = (*ChromemStore)(nil)
