package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// extractDOCX concatenates the document's paragraphs.
func (e *Extractor) extractDOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}

	// Drop blank paragraphs, keep one paragraph per line.
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return strings.Join(lines, "\n"), nil
}
