package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("ragd.vectorstore.qdrant")

// collectionNamePattern validates collection names: lowercase letters,
// numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Payload field names for stored records.
const (
	payloadText       = "text"
	payloadTenantID   = "tenant_id"
	payloadDocumentID = "doc_id"
	payloadChunkIndex = "chunk_index"
	payloadRecordID   = "id"
)

// QdrantConfig holds configuration for the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), NOT the HTTP REST port (6333).
	Port int

	// Collection is the shared collection for all tenants.
	Collection string

	// VectorSize is the embedding dimensionality. Must match the
	// configured embedding provider's output.
	VectorSize int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries bounds retry attempts for transient failures. Default 3.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubling per retry. Default 1s.
	RetryBackoff time.Duration

	// Timeout bounds each index call. Default 15s.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if !collectionNamePattern.MatchString(c.Collection) {
		return fmt.Errorf("%w: collection name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidConfig, c.Collection)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// isTransient reports whether a gRPC error is worth retrying.
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// wrapUnavailable maps connection-level gRPC failures to ErrIndexUnavailable
// so callers can distinguish a down index from bad input.
func wrapUnavailable(err error) error {
	st, ok := status.FromError(err)
	if ok {
		switch st.Code() {
		case grpccodes.Unavailable, grpccodes.DeadlineExceeded:
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
	}
	return err
}

// QdrantStore is a Store backed by Qdrant's native gRPC client.
//
// gRPC transport avoids the HTTP layer's payload limits and performs better
// for large chunk batches. All tenants share one collection; isolation is a
// mandatory scope_key payload filter on every query.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantStore connects to Qdrant and verifies the connection.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(50 * 1024 * 1024),
				grpc.MaxCallSendMsgSize(50 * 1024 * 1024),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	s := &QdrantStore{client: client, config: config}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrIndexUnavailable, err)
	}

	return s, nil
}

// VectorSize returns the configured dimensionality.
func (s *QdrantStore) VectorSize() int {
	return s.config.VectorSize
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on transient
// errors.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func(ctx context.Context) error) error {
	backoff := s.config.RetryBackoff

	var err error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		err = op(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return fmt.Errorf("%s failed: %w", name, wrapUnavailable(err))
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, wrapUnavailable(err))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return err
}

// EnsureCollection idempotently creates the collection with cosine distance
// and a keyword index on the scope filter fields.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("vector_size", s.config.VectorSize),
	)

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func(ctx context.Context) error {
		info, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if exists {
		span.SetStatus(codes.Ok, "exists")
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func(ctx context.Context) error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Keyword indexes keep filtered searches fast as collections grow.
	for _, field := range []string{payloadScopeKey, payloadDocumentID} {
		err = s.retryOperation(ctx, "create_field_index", func(ctx context.Context) error {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: s.config.Collection,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	span.SetStatus(codes.Ok, "created")
	return nil
}

// Upsert inserts or overwrites records in one batch.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
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

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		payload := map[string]*qdrant.Value{
			payloadRecordID:   {Kind: &qdrant.Value_StringValue{StringValue: rec.ID}},
			payloadText:       {Kind: &qdrant.Value_StringValue{StringValue: rec.Text}},
			payloadTenantID:   {Kind: &qdrant.Value_StringValue{StringValue: rec.TenantID}},
			payloadScopeKey:   {Kind: &qdrant.Value_StringValue{StringValue: rec.ScopeKey}},
			payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: rec.DocumentID}},
			payloadChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(rec.ChunkIndex)}},
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: payload,
		}
	}

	err := s.retryOperation(ctx, "upsert", func(ctx context.Context) error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search performs filtered nearest-neighbor search.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, scope Scope, topK int) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
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

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadScopeKey,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: scope.Key},
						},
					},
				},
			},
		},
	}

	var scored []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func(ctx context.Context) error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		scored = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make([]SearchResult, 0, len(scored))
	for _, point := range scored {
		result := SearchResult{Score: point.Score}
		for key, value := range point.Payload {
			switch val := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				switch key {
				case payloadRecordID:
					result.ID = val.StringValue
				case payloadText:
					result.Text = val.StringValue
				case payloadDocumentID:
					result.DocumentID = val.StringValue
				}
			case *qdrant.Value_IntegerValue:
				if key == payloadChunkIndex {
					result.ChunkIndex = int(val.IntegerValue)
				}
			}
		}
		results = append(results, result)
	}

	span.SetAttributes(attribute.Int("result_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// DeleteByDocument removes all records of a document within the scope.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, scope Scope, documentID string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteByDocument")
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

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   payloadScopeKey,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: scope.Key}},
					},
				},
			},
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   payloadDocumentID,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: documentID}},
					},
				},
			},
		},
	}

	err := s.retryOperation(ctx, "delete", func(ctx context.Context) error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
			},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the total number of records in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	span.SetAttributes(attribute.String("collection", s.config.Collection))

	var count uint64
	err := s.retryOperation(ctx, "count", func(ctx context.Context) error {
		n, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.config.Collection,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return count, nil
}

// Ensure QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)
