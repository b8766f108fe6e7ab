package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/chunker"
	"github.com/docsetlabs/ragd/internal/docstore"
	"github.com/docsetlabs/ragd/internal/retrieval"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

const testKey = "test-api-key"

// fakeRetriever returns canned results and records calls.
type fakeRetriever struct {
	indexErr    error
	chunkCount  int
	scored      []retrieval.ScoredChunk
	retrieveErr error
	deleted     []string
	lastScope   vectorstore.Scope
}

func (f *fakeRetriever) IndexFile(_ context.Context, scope vectorstore.Scope, _ string, _ string) (int, error) {
	f.lastScope = scope
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	return f.chunkCount, nil
}

func (f *fakeRetriever) RetrieveScored(_ context.Context, scope vectorstore.Scope, _ string, _ int) ([]retrieval.ScoredChunk, error) {
	f.lastScope = scope
	return f.scored, f.retrieveErr
}

func (f *fakeRetriever) DeleteDocument(_ context.Context, _ vectorstore.Scope, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeMetadata is an in-memory MetadataStore.
type fakeMetadata struct {
	docs map[string]docstore.Document
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{docs: make(map[string]docstore.Document)}
}

func (f *fakeMetadata) SaveDocument(_ context.Context, doc docstore.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeMetadata) GetDocument(_ context.Context, tenantID, id string) (docstore.Document, error) {
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return doc, nil
}

func (f *fakeMetadata) ListDocuments(_ context.Context, tenantID string) ([]docstore.Document, error) {
	var out []docstore.Document
	for _, doc := range f.docs {
		if doc.TenantID == tenantID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeMetadata) DeleteDocument(_ context.Context, tenantID, id string) error {
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return docstore.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeMetadata) ResolveKey(_ context.Context, key string) (docstore.Credential, error) {
	if key != testKey {
		return docstore.Credential{}, docstore.ErrUnknownKey
	}
	return docstore.Credential{TenantID: "acme", ScopeKey: "acme"}, nil
}

// fakeFiles records saves and deletes without touching disk.
type fakeFiles struct {
	saved   []string
	deleted []string
}

func (f *fakeFiles) Save(documentID, _ string, r io.Reader) (string, int64, error) {
	n, _ := io.Copy(io.Discard, r)
	f.saved = append(f.saved, documentID)
	return documentID + ".txt", n, nil
}

func (f *fakeFiles) Path(ref string) (string, error) {
	return "/tmp/" + ref, nil
}

func (f *fakeFiles) Delete(ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

func newTestServer(t *testing.T, retriever *fakeRetriever) (*Server, *fakeMetadata, *fakeFiles) {
	t.Helper()
	metadata := newFakeMetadata()
	files := &fakeFiles{}
	server, err := NewServer(retriever, metadata, files, zap.NewNop(), Config{})
	require.NoError(t, err)
	return server, metadata, files
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestNewServer_Validation(t *testing.T) {
	metadata := newFakeMetadata()
	files := &fakeFiles{}

	_, err := NewServer(nil, metadata, files, zap.NewNop(), Config{})
	assert.Error(t, err)

	_, err = NewServer(&fakeRetriever{}, metadata, files, nil, Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestHandleHealth_NoAuthRequired(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestAuth_MissingKey(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_UnknownKey(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUploadDocument(t *testing.T) {
	retriever := &fakeRetriever{chunkCount: 3}
	server, metadata, files := newTestServer(t, retriever)

	body, contentType := multipartBody(t, "notes.txt", "some uploaded content")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set(echoHeaderContentType, contentType)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, "notes.txt", resp.Filename)
	assert.Equal(t, 3, resp.ChunkCount)

	doc, ok := metadata.docs[resp.DocumentID]
	require.True(t, ok)
	assert.Equal(t, "acme", doc.TenantID)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.Len(t, files.saved, 1)
	assert.Equal(t, vectorstore.Scope{TenantID: "acme", Key: "acme"}, retriever.lastScope)
}

func TestHandleUploadDocument_MissingFile(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadDocument_EmptyDocument(t *testing.T) {
	retriever := &fakeRetriever{indexErr: chunker.ErrEmptyDocument}
	server, metadata, files := newTestServer(t, retriever)

	body, contentType := multipartBody(t, "empty.txt", "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set(echoHeaderContentType, contentType)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	// No metadata row and the stored file was cleaned up.
	assert.Empty(t, metadata.docs)
	assert.Len(t, files.deleted, 1)
}

func TestHandleListDocuments(t *testing.T) {
	server, metadata, _ := newTestServer(t, &fakeRetriever{})
	metadata.docs["doc1"] = docstore.Document{ID: "doc1", TenantID: "acme", Filename: "a.txt"}
	metadata.docs["doc2"] = docstore.Document{ID: "doc2", TenantID: "other", Filename: "b.txt"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "doc1", resp[0].DocumentID)
}

func TestHandleDeleteDocument(t *testing.T) {
	retriever := &fakeRetriever{}
	server, metadata, files := newTestServer(t, retriever)
	metadata.docs["doc1"] = docstore.Document{
		ID: "doc1", TenantID: "acme", Filename: "a.txt", StorageRef: "doc1.txt",
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc1", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"doc1"}, retriever.deleted)
	assert.Equal(t, []string{"doc1.txt"}, files.deleted)
	assert.Empty(t, metadata.docs)
}

func TestHandleDeleteDocument_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/ghost", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQuery(t *testing.T) {
	retriever := &fakeRetriever{scored: []retrieval.ScoredChunk{
		{Text: "relevant chunk", Score: 0.91, DocumentID: "doc1", ChunkIndex: 1},
		{Text: "less relevant", Score: 0.42, DocumentID: "doc2", ChunkIndex: 0},
	}}
	server, _, _ := newTestServer(t, retriever)

	body := bytes.NewBufferString(`{"query":"what is relevant","top_k":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "relevant chunk", resp.Results[0].Text)
	assert.InDelta(t, 0.91, resp.Results[0].Score, 0.001)
	assert.Equal(t, 1, resp.Results[0].ChunkIndex)
}

func TestHandleQuery_EmptyQuery(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{})

	body := bytes.NewBufferString(`{"query":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuery_NoResults(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeRetriever{scored: nil})

	body := bytes.NewBufferString(`{"query":"anything"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Results is an empty array, never null.
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

const echoHeaderContentType = "Content-Type"
