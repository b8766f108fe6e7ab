package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// extractCSV reads every row and joins cells with ", ", one row per line.
func (e *Extractor) extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Malformed CSVs with ragged rows are common in uploads; accept them.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}

	lines := make([]string, 0, len(records))
	for _, row := range records {
		lines = append(lines, strings.Join(row, ", "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
