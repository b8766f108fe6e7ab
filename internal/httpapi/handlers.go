package httpapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/chunker"
	"github.com/docsetlabs/ragd/internal/docstore"
	"github.com/docsetlabs/ragd/internal/embeddings"
	"github.com/docsetlabs/ragd/internal/extract"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

// UploadResponse is the response body for POST /api/v1/documents.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentResponse is one entry in GET /api/v1/documents.
type DocumentResponse struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryResult is one ranked chunk in the query response.
type QueryResult struct {
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
}

// QueryResponse is the response body for POST /api/v1/query. Results is
// always present; an empty array means no indexed context matched.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}

// mapPipelineError translates pipeline errors to HTTP status codes.
func mapPipelineError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported file format")
	case errors.Is(err, extract.ErrExtractionFailed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "could not extract text from file")
	case errors.Is(err, chunker.ErrEmptyDocument):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "document has no extractable text")
	case errors.Is(err, embeddings.ErrEmbeddingFailed):
		return echo.NewHTTPError(http.StatusBadGateway, "embedding generation failed")
	case errors.Is(err, vectorstore.ErrIndexUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "vector index unavailable")
	case errors.Is(err, vectorstore.ErrInvalidScope):
		return echo.NewHTTPError(http.StatusForbidden, "invalid scope")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// handleUploadDocument stores the upload, extracts its text and indexes it.
// Nothing is persisted when indexing fails: the stored file is removed and
// no metadata row is written.
func (s *Server) handleUploadDocument(c echo.Context) error {
	scope := requestScope(c)
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
	}
	defer src.Close()

	documentID := uuid.NewString()
	ref, size, err := s.files.Save(documentID, fileHeader.Filename, src)
	if err != nil {
		s.logger.Error("storing upload", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not store upload")
	}

	path, err := s.files.Path(ref)
	if err != nil {
		s.logger.Error("resolving stored upload", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not store upload")
	}

	chunkCount, err := s.retriever.IndexFile(ctx, scope, documentID, path)
	if err != nil {
		if cleanupErr := s.files.Delete(ref); cleanupErr != nil {
			s.logger.Warn("cleanup after failed indexing", zap.Error(cleanupErr))
		}
		s.logger.Warn("indexing failed",
			zap.String("document_id", documentID),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		return mapPipelineError(err)
	}

	doc := docstore.Document{
		ID:         documentID,
		TenantID:   scope.TenantID,
		Filename:   fileHeader.Filename,
		Format:     formatOf(fileHeader.Filename),
		SizeBytes:  size,
		StorageRef: ref,
		ChunkCount: chunkCount,
	}
	if err := s.metadata.SaveDocument(ctx, doc); err != nil {
		s.logger.Error("saving document metadata", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save document")
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		DocumentID: documentID,
		Filename:   fileHeader.Filename,
		ChunkCount: chunkCount,
	})
}

// handleListDocuments lists the tenant's documents, newest first.
func (s *Server) handleListDocuments(c echo.Context) error {
	scope := requestScope(c)

	docs, err := s.metadata.ListDocuments(c.Request().Context(), scope.TenantID)
	if err != nil {
		s.logger.Error("listing documents", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list documents")
	}

	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = DocumentResponse{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Format:     doc.Format,
			SizeBytes:  doc.SizeBytes,
			ChunkCount: doc.ChunkCount,
			CreatedAt:  doc.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, out)
}

// handleDeleteDocument removes the document from the index, the file store
// and the metadata store.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	scope := requestScope(c)
	ctx := c.Request().Context()
	id := c.Param("id")

	doc, err := s.metadata.GetDocument(ctx, scope.TenantID, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		s.logger.Error("fetching document", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not fetch document")
	}

	if err := s.retriever.DeleteDocument(ctx, scope, id); err != nil {
		s.logger.Error("deleting document from index", zap.Error(err))
		return mapPipelineError(err)
	}
	if err := s.files.Delete(doc.StorageRef); err != nil {
		s.logger.Warn("deleting stored file", zap.Error(err))
	}
	if err := s.metadata.DeleteDocument(ctx, scope.TenantID, id); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		s.logger.Error("deleting document metadata", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete document")
	}

	return c.NoContent(http.StatusNoContent)
}

// handleQuery runs a scoped similarity search and returns the ranked chunks.
func (s *Server) handleQuery(c echo.Context) error {
	scope := requestScope(c)

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	if req.TopK < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "top_k must not be negative")
	}

	scored, err := s.retriever.RetrieveScored(c.Request().Context(), scope, req.Query, req.TopK)
	if err != nil {
		s.logger.Warn("query failed", zap.Error(err))
		return mapPipelineError(err)
	}

	results := make([]QueryResult, len(scored))
	for i, chunk := range scored {
		results[i] = QueryResult{
			Text:       chunk.Text,
			Score:      chunk.Score,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.ChunkIndex,
		}
	}
	return c.JSON(http.StatusOK, QueryResponse{Results: results})
}

// formatOf returns the lowercased extension without the dot.
func formatOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
