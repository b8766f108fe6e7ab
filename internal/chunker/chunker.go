// Package chunker splits extracted document text into fixed-size windows
// suitable for embedding.
package chunker

import "errors"

// ErrEmptyDocument is returned when a document has no extractable text.
// Documents with no content are rejected up front instead of silently
// producing zero chunks that would never appear in the index.
var ErrEmptyDocument = errors.New("document has no extractable text")

// DefaultMaxChars is the default chunk window size in characters.
const DefaultMaxChars = 2000

// Chunk is one contiguous window of a document's extracted text.
type Chunk struct {
	// Index is the zero-based position of the chunk within the document.
	// Downstream consumers rely on it for ordering and reconstruction.
	Index int

	// Text is the raw window content.
	Text string
}

// Split slices text into consecutive non-overlapping windows of at most
// maxChars characters. Every window except possibly the last has exactly
// maxChars characters, and concatenating the windows in order reproduces the
// input exactly.
//
// Windows are measured in Unicode code points, never splitting a multi-byte
// rune. Empty input returns ErrEmptyDocument.
func Split(text string, maxChars int) ([]Chunk, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if text == "" {
		return nil, ErrEmptyDocument
	}

	runes := []rune(text)
	chunks := make([]Chunk, 0, (len(runes)+maxChars-1)/maxChars)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
	}
	return chunks, nil
}
