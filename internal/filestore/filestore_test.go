package filestore_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsetlabs/ragd/internal/filestore"
)

func TestSaveAndPath(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	ref, size, err := store.Save("doc1", "Report.PDF", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, "doc1.pdf", ref)
	assert.Equal(t, int64(7), size)

	path, err := store.Path(ref)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestSave_NoExtension(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	ref, _, err := store.Save("doc1", "README", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "doc1", ref)
}

func TestPath_UnknownRef(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Path("missing.txt")
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestPath_RejectsTraversal(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Path("../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, filestore.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	ref, _, err := store.Save("doc1", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ref))

	_, err = store.Path(ref)
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	// Idempotent: deleting a missing ref is not an error.
	assert.NoError(t, store.Delete(ref))
}
