// Package filestore keeps the raw uploaded files on disk.
//
// Uploads are stored under <dir>/<document-id><ext> so the original
// extension survives for format dispatch during re-indexing. The storage ref
// recorded in document metadata is the file name, never an absolute path.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates no stored file for the ref.
var ErrNotFound = errors.New("stored file not found")

// Store is a disk-backed upload store.
type Store struct {
	dir string
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the upload content and returns the storage ref. filename only
// contributes its extension; the stored name is derived from documentID.
func (s *Store) Save(documentID, filename string, r io.Reader) (string, int64, error) {
	if documentID == "" {
		return "", 0, errors.New("document id required")
	}
	ref := documentID + strings.ToLower(filepath.Ext(filename))

	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("creating stored file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("writing stored file: %w", err)
	}
	return ref, n, nil
}

// Path resolves a storage ref to its absolute path.
func (s *Store) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) {
		return "", fmt.Errorf("invalid storage ref %q", ref)
	}
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return "", err
	}
	return path, nil
}

// Delete removes the stored file. Deleting a missing ref is not an error;
// the delete endpoint is idempotent.
func (s *Store) Delete(ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("invalid storage ref %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting stored file: %w", err)
	}
	return nil
}
