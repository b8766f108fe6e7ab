// Package extract converts uploaded files into plain text.
//
// Extraction dispatches on file format: PDF (selectable text, tables, OCR
// fallback for scanned pages), images (OCR), CSV, plain text and DOCX.
// Extractors are stateless; the package holds no persisted state.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned when no handler matches the file
	// extension and the content is not decodable as plain text.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed is returned when a format-specific parser cannot
	// read the file at all. The failure is deterministic for a given file:
	// a corrupt upload stays corrupt, so callers should treat this as a
	// user-retryable error, not a transient fault.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Extractor converts raw files into deduplicated plain text.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract reads the file at path and returns its plain-text content.
//
// formatHint overrides format detection when non-empty (e.g. "pdf", ".pdf");
// otherwise the file extension decides. Output blocks are deduplicated
// exact-match in first-seen order and the result is whitespace-trimmed.
// An empty result is not an error here; rejecting empty documents is the
// chunker's job.
func (e *Extractor) Extract(ctx context.Context, path string, formatHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := strings.ToLower(strings.TrimPrefix(formatHint, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}

	switch format {
	case "pdf":
		return e.extractPDF(ctx, path)
	case "png", "jpg", "jpeg":
		return e.extractImage(path)
	case "csv":
		return e.extractCSV(path)
	case "txt":
		return e.extractText(path)
	case "docx":
		return e.extractDOCX(path)
	default:
		// Unknown extension: accept the file if it decodes as plain text.
		text, err := e.extractText(path)
		if err != nil {
			return "", err
		}
		if !looksLikeText(text) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
		return text, nil
	}
}

// extractText reads the file as UTF-8 text.
func (e *Extractor) extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	return strings.TrimSpace(string(data)), nil
}

// looksLikeText reports whether s is valid UTF-8 with a plausible share of
// printable characters.
func looksLikeText(s string) bool {
	if s == "" {
		return true
	}
	if !utf8.ValidString(s) {
		return false
	}
	control := 0
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			control++
		}
	}
	return control*10 < len(s)
}

// dedupeBlocks removes exact duplicate blocks while preserving first-seen
// order, trimming surrounding whitespace and dropping empty blocks.
func dedupeBlocks(blocks []string) string {
	seen := make(map[string]struct{}, len(blocks))
	unique := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		unique = append(unique, b)
	}
	return strings.TrimSpace(strings.Join(unique, "\n"))
}
