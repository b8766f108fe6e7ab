package extract

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// extractImage runs OCR over a standalone image file.
func (e *Extractor) extractImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("%w: decoding %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}

	text, err := ocrImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: ocr on %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	return strings.TrimSpace(text), nil
}
