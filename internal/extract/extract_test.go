package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docsetlabs/ragd/internal/extract"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestExtract_PlainText(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "notes.txt", []byte("  hello world\nsecond line  \n"))

	text, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", text)
}

func TestExtract_ZeroByteFile(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "empty.txt", nil)

	text, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_CSV(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "data.csv", []byte("name,age\nalice,30\nbob,41\n"))

	text, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "name, age\nalice, 30\nbob, 41", text)
}

func TestExtract_CSVRaggedRows(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "ragged.csv", []byte("a,b,c\nd,e\nf\n"))

	text, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "a, b, c\nd, e\nf", text)
}

func TestExtract_UnknownExtensionTextFallback(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "readme.weird", []byte("still readable text"))

	text, err := e.Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "still readable text", text)
}

func TestExtract_UnknownExtensionBinary(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "blob.bin", []byte{0x00, 0x01, 0xFF, 0xFE, 0x02, 0x03})

	_, err := e.Extract(context.Background(), path, "")
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
}

func TestExtract_FormatHintOverridesExtension(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "data.bin", []byte("x,y\n1,2\n"))

	text, err := e.Extract(context.Background(), path, ".csv")
	require.NoError(t, err)
	assert.Equal(t, "x, y\n1, 2", text)
}

func TestExtract_MissingFile(t *testing.T) {
	e := extract.New(zap.NewNop())

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), "")
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestExtract_CorruptPDF(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.7 not actually a pdf"))

	_, err := e.Extract(context.Background(), path, "")
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestExtract_CanceledContext(t *testing.T) {
	e := extract.New(zap.NewNop())
	path := writeFile(t, "notes.txt", []byte("content"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, path, "")
	assert.ErrorIs(t, err, context.Canceled)
}
