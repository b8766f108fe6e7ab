// Package vectorstore defines the vector index interface and its backends.
//
// The index stores one record per embedded text chunk in a single shared
// collection. Tenant isolation is enforced by a mandatory scope filter on
// every search; an unfiltered search is rejected at the API boundary.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector index operations.
var (
	// ErrIndexUnavailable indicates the backing index cannot be reached.
	// This is the one category callers may retry with backoff; it is
	// distinct from an empty result set, which is a valid outcome.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch is returned when a record's vector length does
	// not equal the index's configured dimensionality. Mismatches fail
	// fast rather than silently corrupting similarity search.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidScope is returned when the mandatory tenant scope is
	// missing or malformed.
	ErrInvalidScope = errors.New("missing or invalid scope")

	// ErrEmptyBatch indicates an empty or nil record batch.
	ErrEmptyBatch = errors.New("empty or nil record batch")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Record is the unit stored in the vector index: one embedded text chunk
// with its ownership metadata.
type Record struct {
	// ID uniquely identifies the record. Upserting an existing ID
	// overwrites it.
	ID string

	// Vector is the embedding. Its length must equal the store's
	// configured vector size.
	Vector []float32

	// TenantID records which tenant owns the chunk.
	TenantID string

	// ScopeKey is the retrieval partition value. Every search filters on
	// it; a record is only ever visible to queries carrying the same key.
	ScopeKey string

	// DocumentID ties the record back to its source document so a
	// document delete can cascade to its chunks.
	DocumentID string

	// ChunkIndex is the chunk's position within the source document.
	ChunkIndex int

	// Text is the raw chunk content returned by searches.
	Text string
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	ID         string
	Text       string
	Score      float32
	DocumentID string
	ChunkIndex int
}

// Store is the vector index interface.
//
// Implementations are safe for concurrent use; multiple in-flight requests
// share one store. Record independence (unique IDs) is what keeps concurrent
// upserts from corrupting each other, not locking.
//
// Implementations:
//   - QdrantStore: external Qdrant over gRPC
//   - ChromemStore: embedded chromem-go
type Store interface {
	// EnsureCollection idempotently creates the backing collection with
	// the store's configured dimensionality and cosine distance. Safe to
	// call repeatedly.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or overwrites records by ID as one batch. Vector
	// lengths are validated against the configured dimensionality before
	// anything is written; a failed batch writes nothing.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to topK records most similar to vector, restricted
	// to records whose scope key matches scope. Results are ordered by
	// non-increasing score with ties broken by insertion order. An empty
	// result set is a valid, non-error outcome.
	Search(ctx context.Context, vector []float32, scope Scope, topK int) ([]SearchResult, error)

	// DeleteByDocument removes every record of the given document within
	// the scope.
	DeleteByDocument(ctx context.Context, scope Scope, documentID string) error

	// Count returns the total number of records in the collection.
	Count(ctx context.Context) (uint64, error)

	// VectorSize returns the configured dimensionality.
	VectorSize() int

	// Close releases the store's resources.
	Close() error
}

// validateRecords checks a batch before it touches the index.
func validateRecords(records []Record, vectorSize int) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}
	for i, rec := range records {
		if len(rec.Vector) != vectorSize {
			return &DimensionError{Index: i, Got: len(rec.Vector), Want: vectorSize}
		}
		if rec.TenantID == "" || rec.ScopeKey == "" {
			return &ScopeError{Reason: "record missing tenant or scope key"}
		}
	}
	return nil
}
