// Package docstore persists document metadata and API credentials in SQLite.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. The vector index holds the searchable content; this store holds
// what the index does not: upload metadata, storage references and the API
// keys that authenticate tenants.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	// ErrNotFound indicates the document does not exist for the tenant.
	ErrNotFound = errors.New("document not found")

	// ErrUnknownKey indicates the API key does not exist.
	ErrUnknownKey = errors.New("unknown api key")

	// ErrKeyRevoked indicates the API key exists but has been revoked.
	ErrKeyRevoked = errors.New("api key revoked")
)

// Document is the stored metadata for one uploaded document.
type Document struct {
	ID         string
	TenantID   string
	Filename   string
	Format     string
	SizeBytes  int64
	StorageRef string
	ChunkCount int
	CreatedAt  time.Time
}

// Credential is what an API key resolves to.
type Credential struct {
	TenantID string
	ScopeKey string
}

// Store is a SQLite-backed metadata and credential store.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	filename    TEXT NOT NULL,
	format      TEXT NOT NULL DEFAULT '',
	size_bytes  INTEGER NOT NULL DEFAULT 0,
	storage_ref TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);

CREATE TABLE IF NOT EXISTS api_keys (
	key        TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	scope_key  TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	revoked_at DATETIME
);
`

// New opens (or creates) the store at dataDir. Empty dataDir defaults to
// ~/.local/share/ragd.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "ragd")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// WAL mode for better concurrency under the HTTP server
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SaveDocument inserts or replaces the document's metadata.
func (s *Store) SaveDocument(ctx context.Context, doc Document) error {
	if doc.ID == "" || doc.TenantID == "" {
		return errors.New("document id and tenant id required")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
			(id, tenant_id, filename, format, size_bytes, storage_ref, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.TenantID, doc.Filename, doc.Format, doc.SizeBytes,
		doc.StorageRef, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument fetches one document, scoped to the tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, filename, format, size_bytes, storage_ref, chunk_count, created_at
		FROM documents WHERE id = ? AND tenant_id = ?`, id, tenantID)

	var doc Document
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.Format,
		&doc.SizeBytes, &doc.StorageRef, &doc.ChunkCount, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("fetching document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns the tenant's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, filename, format, size_bytes, storage_ref, chunk_count, created_at
		FROM documents WHERE tenant_id = ? ORDER BY created_at DESC, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.Format,
			&doc.SizeBytes, &doc.StorageRef, &doc.ChunkCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes the document's metadata. Returns ErrNotFound when
// nothing was deleted.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CreateKey mints a new API key for the tenant. The scope key defaults to
// the tenant id when empty, giving the tenant one shared retrieval partition.
func (s *Store) CreateKey(ctx context.Context, tenantID, scopeKey, name string) (string, error) {
	if tenantID == "" {
		return "", errors.New("tenant id required")
	}
	if scopeKey == "" {
		scopeKey = tenantID
	}
	key := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (key, tenant_id, scope_key, name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		key, tenantID, scopeKey, name, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	return key, nil
}

// RevokeKey marks the key revoked. Revocation is permanent; resolved
// requests fail from the next call on.
func (s *Store) RevokeKey(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = ? WHERE key = ? AND revoked_at IS NULL`,
		time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownKey
	}
	return nil
}

// ResolveKey maps an API key to its credential. Unknown and revoked keys
// return distinct errors so the API layer can log them apart, but both map
// to the same 401 response.
func (s *Store) ResolveKey(ctx context.Context, key string) (Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tenant_id, scope_key, revoked_at FROM api_keys WHERE key = ?`, key)

	var cred Credential
	var revokedAt sql.NullTime
	err := row.Scan(&cred.TenantID, &cred.ScopeKey, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrUnknownKey
	}
	if err != nil {
		return Credential{}, fmt.Errorf("resolving api key: %w", err)
	}
	if revokedAt.Valid {
		return Credential{}, ErrKeyRevoked
	}
	return cred, nil
}
