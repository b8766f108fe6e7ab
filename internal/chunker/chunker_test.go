package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsetlabs/ragd/internal/chunker"
)

func TestSplit_RoundTrip(t *testing.T) {
	text := strings.Repeat("abcdefghij", 731) // 7310 chars

	chunks, err := chunker.Split(text, 2000)
	require.NoError(t, err)

	var rebuilt strings.Builder
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		rebuilt.WriteString(c.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_WindowSizes(t *testing.T) {
	text := strings.Repeat("x", 5000)

	chunks, err := chunker.Split(text, 2000)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 2000)
	assert.Len(t, chunks[1].Text, 2000)
	assert.Len(t, chunks[2].Text, 1000)
}

func TestSplit_ShortInput(t *testing.T) {
	chunks, err := chunker.Split("short", 2000)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_ExactMultiple(t *testing.T) {
	text := strings.Repeat("y", 4000)

	chunks, err := chunker.Split(text, 2000)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Text, 2000)
	assert.Len(t, chunks[1].Text, 2000)
}

func TestSplit_EmptyInput(t *testing.T) {
	_, err := chunker.Split("", 2000)
	assert.ErrorIs(t, err, chunker.ErrEmptyDocument)
}

func TestSplit_DefaultWindow(t *testing.T) {
	text := strings.Repeat("z", chunker.DefaultMaxChars+1)

	chunks, err := chunker.Split(text, 0)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Text, chunker.DefaultMaxChars)
	assert.Len(t, chunks[1].Text, 1)
}

func TestSplit_MultibyteRunes(t *testing.T) {
	// 10 runes of 3 bytes each; windows must count runes, not bytes.
	text := strings.Repeat("日", 10)

	chunks, err := chunker.Split(text, 4)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("日", 4), chunks[0].Text)
	assert.Equal(t, strings.Repeat("日", 4), chunks[1].Text)
	assert.Equal(t, strings.Repeat("日", 2), chunks[2].Text)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}
