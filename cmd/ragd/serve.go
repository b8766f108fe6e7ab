package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/config"
	"github.com/docsetlabs/ragd/internal/docstore"
	"github.com/docsetlabs/ragd/internal/embeddings"
	"github.com/docsetlabs/ragd/internal/extract"
	"github.com/docsetlabs/ragd/internal/filestore"
	"github.com/docsetlabs/ragd/internal/httpapi"
	"github.com/docsetlabs/ragd/internal/logging"
	"github.com/docsetlabs/ragd/internal/retrieval"
	"github.com/docsetlabs/ragd/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the ragd daemon: embedding provider, vector index and HTTP API.

Examples:
  # Run with the default config
  ragd serve

  # Run with an explicit config file
  ragd serve --config /etc/ragd/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey.Value(),
		BaseURL:  cfg.Embedding.BaseURL,
		CacheDir: cfg.Embedding.CacheDir,
	})
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer provider.Close()

	store, err := newStore(cfg, provider.Dimension(), logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	service, err := retrieval.New(provider, store, extract.New(logger), retrieval.Config{
		MaxChars: cfg.Chunking.MaxChars,
		TopK:     cfg.Retrieval.TopK,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating retrieval service: %w", err)
	}

	metadata, err := docstore.New(dataDir(cfg))
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer metadata.Close()

	files, err := filestore.New(uploadDir(cfg))
	if err != nil {
		return fmt.Errorf("creating file store: %w", err)
	}

	server, err := httpapi.NewServer(service, metadata, files, logger, httpapi.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	logger.Info("ragd starting",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimension", provider.Dimension()),
		zap.String("vectorstore_backend", cfg.VectorStore.Backend),
		zap.String("collection", cfg.VectorStore.Collection),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// newStore builds the configured vector store backend. The collection is
// sized to the active embedding provider so dimension mismatches surface at
// startup.
func newStore(cfg *config.Config, dimension int, logger *zap.Logger) (vectorstore.Store, error) {
	switch cfg.VectorStore.Backend {
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			Collection: cfg.VectorStore.Collection,
			VectorSize: dimension,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
			Timeout:    cfg.VectorStore.Qdrant.Timeout,
		})
	case "chromem":
		path := cfg.VectorStore.Chromem.Path
		if path == "" {
			path = filepath.Join(dataDir(cfg), "index")
		}
		return vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:       path,
			Compress:   cfg.VectorStore.Chromem.Compress,
			Collection: cfg.VectorStore.Collection,
			VectorSize: dimension,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown vectorstore backend %q", cfg.VectorStore.Backend)
	}
}

// dataDir resolves the metadata/index directory.
func dataDir(cfg *config.Config) string {
	if cfg.Storage.DataDir != "" {
		return cfg.Storage.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ragd"
	}
	return filepath.Join(home, ".local", "share", "ragd")
}

// uploadDir resolves the raw upload directory.
func uploadDir(cfg *config.Config) string {
	if cfg.Storage.UploadDir != "" {
		return cfg.Storage.UploadDir
	}
	return filepath.Join(dataDir(cfg), "uploads")
}
