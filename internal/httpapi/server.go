// Package httpapi provides the HTTP API for ragd.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/docstore"
	"github.com/docsetlabs/ragd/internal/retrieval"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

// scopeContextKey is the echo context key the auth middleware stores the
// resolved scope under.
const scopeContextKey = "ragd.scope"

// Retriever is the slice of the retrieval orchestrator the API uses.
type Retriever interface {
	IndexFile(ctx context.Context, scope vectorstore.Scope, documentID string, path string) (int, error)
	RetrieveScored(ctx context.Context, scope vectorstore.Scope, query string, topK int) ([]retrieval.ScoredChunk, error)
	DeleteDocument(ctx context.Context, scope vectorstore.Scope, documentID string) error
}

// MetadataStore is the slice of the document store the API uses.
type MetadataStore interface {
	SaveDocument(ctx context.Context, doc docstore.Document) error
	GetDocument(ctx context.Context, tenantID, id string) (docstore.Document, error)
	ListDocuments(ctx context.Context, tenantID string) ([]docstore.Document, error)
	DeleteDocument(ctx context.Context, tenantID, id string) error
	ResolveKey(ctx context.Context, key string) (docstore.Credential, error)
}

// FileStore is the slice of the upload store the API uses.
type FileStore interface {
	Save(documentID, filename string, r io.Reader) (string, int64, error)
	Path(ref string) (string, error)
	Delete(ref string) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// MaxUploadBytes bounds request bodies, chiefly multipart uploads.
	// Zero means no limit.
	MaxUploadBytes int64
}

// Server provides HTTP endpoints for ragd.
type Server struct {
	echo      *echo.Echo
	retriever Retriever
	metadata  MetadataStore
	files     FileStore
	logger    *zap.Logger
	config    Config
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(retriever Retriever, metadata MetadataStore, files FileStore, logger *zap.Logger, cfg Config) (*Server, error) {
	if retriever == nil || metadata == nil || files == nil {
		return nil, fmt.Errorf("retriever, metadata store and file store are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8090
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.MaxUploadBytes)))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		retriever: retriever,
		metadata:  metadata,
		files:     files,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1", s.apiKeyAuth)
	v1.POST("/documents", s.handleUploadDocument)
	v1.GET("/documents", s.handleListDocuments)
	v1.DELETE("/documents/:id", s.handleDeleteDocument)
	v1.POST("/query", s.handleQuery)
}

// apiKeyAuth resolves the X-API-Key header to a tenant scope. Unknown and
// revoked keys both answer 401; the distinction only shows up in logs.
func (s *Server) apiKeyAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get("X-API-Key")
		if key == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing API key")
		}

		cred, err := s.metadata.ResolveKey(c.Request().Context(), key)
		if err != nil {
			s.logger.Warn("api key rejected", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
		}

		c.Set(scopeContextKey, vectorstore.Scope{
			TenantID: cred.TenantID,
			Key:      cred.ScopeKey,
		})
		return next(c)
	}
}

// requestScope fetches the scope the auth middleware resolved.
func requestScope(c echo.Context) vectorstore.Scope {
	scope, _ := c.Get(scopeContextKey).(vectorstore.Scope)
	return scope
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
