package retrieval_test

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/chunker"
	"github.com/docsetlabs/ragd/internal/retrieval"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

const testDim = 64

// hashProvider is a deterministic bag-of-words embedder: texts sharing
// vocabulary get similar vectors, which is enough to test ranking without a
// real model.
type hashProvider struct {
	dim int
}

func (p *hashProvider) embed(text string) []float32 {
	v := make([]float32, p.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(p.dim)]++
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq > 0 {
		norm := float32(1 / math.Sqrt(sumSq))
		for i := range v {
			v[i] *= norm
		}
	}
	return v
}

func (p *hashProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embed(t)
	}
	return out, nil
}

func (p *hashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

func (p *hashProvider) Dimension() int { return p.dim }
func (p *hashProvider) Close() error   { return nil }

func newTestService(t *testing.T) (*retrieval.Service, *vectorstore.ChromemStore) {
	t.Helper()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Collection: "retrieval_test",
		VectorSize: testDim,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(context.Background()))

	svc, err := retrieval.New(&hashProvider{dim: testDim}, store, nil, retrieval.Config{}, zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func TestNew_DimensionMismatchFailsFast(t *testing.T) {
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Collection: "mismatch_test",
		VectorSize: testDim,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = retrieval.New(&hashProvider{dim: testDim / 2}, store, nil, retrieval.Config{}, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestIndexText_ChunkCount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	// 5000 chars split into 2000/2000/1000.
	text := strings.Repeat("x", 5000)
	n, err := svc.IndexText(ctx, scope, "doc1", text)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndexText_EmptyText(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	_, err := svc.IndexText(ctx, scope, "doc1", "")
	assert.ErrorIs(t, err, chunker.ErrEmptyDocument)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexText_InvalidScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.IndexText(context.Background(), vectorstore.Scope{}, "doc1", "text")
	assert.ErrorIs(t, err, vectorstore.ErrInvalidScope)
}

func TestRetrieve_VerbatimPhraseRanksMatchingChunkFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	// Three chunk windows with distinct vocabulary: the middle window is
	// all "bravo", so a bravo query must rank chunk index 1 first.
	text := strings.Repeat("alpha ", 334)[:2000] +
		strings.Repeat("bravo ", 334)[:2000] +
		strings.Repeat("charlie ", 125)[:1000]
	require.Len(t, []rune(text), 5000)

	n, err := svc.IndexText(ctx, scope, "doc1", text)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	scored, err := svc.RetrieveScored(ctx, scope, "bravo bravo bravo", 3)
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	assert.Equal(t, 1, scored[0].ChunkIndex)
	assert.Contains(t, scored[0].Text, "bravo")
}

func TestRetrieve_ScopeIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IndexText(ctx, vectorstore.Scope{TenantID: "tenant_a", Key: "tenant_a"},
		"doc_a", "confidential tenant a material")
	require.NoError(t, err)

	texts, err := svc.Retrieve(ctx, vectorstore.Scope{TenantID: "tenant_b", Key: "tenant_b"},
		"confidential tenant a material", 5)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	docs := []string{
		"alpha common words here",
		"alpha common words there",
		"alpha common words everywhere",
		"alpha common words beyond",
		"alpha common words again",
	}
	for i, text := range docs {
		_, err := svc.IndexText(ctx, scope, string(rune('a'+i)), text)
		require.NoError(t, err)
	}

	texts, err := svc.Retrieve(ctx, scope, "alpha common words", 0)
	require.NoError(t, err)
	assert.Len(t, texts, retrieval.DefaultTopK)
}

func TestIndexFile_TextFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("searchable file content about orchestration"), 0o600))

	n, err := svc.IndexFile(ctx, scope, "doc1", path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	texts, err := svc.Retrieve(ctx, scope, "searchable file content about orchestration", 1)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "searchable file content about orchestration", texts[0])
}

func TestIndexFile_EmptyFile(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := svc.IndexFile(ctx, scope, "doc1", path)
	assert.ErrorIs(t, err, chunker.ErrEmptyDocument)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestDeleteDocument(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	scope := vectorstore.Scope{TenantID: "acme", Key: "acme"}

	_, err := svc.IndexText(ctx, scope, "doc1", "first document content")
	require.NoError(t, err)
	_, err = svc.IndexText(ctx, scope, "doc2", "second document content")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, scope, "doc1"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	texts, err := svc.Retrieve(ctx, scope, "first document content", 5)
	require.NoError(t, err)
	for _, text := range texts {
		assert.NotEqual(t, "first document content", text)
	}
}
