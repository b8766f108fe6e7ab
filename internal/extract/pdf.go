package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF merges three text sources per document: page-level selectable
// text, table rows serialized as comma-joined cells, and OCR output from
// rendered pages. OCR failure is non-fatal; extraction continues with
// whatever text was already gathered.
func (e *Extractor) extractPDF(ctx context.Context, path string) (text string, err error) {
	// The pdf library panics on some malformed files. Convert that into the
	// deterministic extraction error the caller expects.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parsing %s: %v", ErrExtractionFailed, filepath.Base(path), r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtractionFailed, filepath.Base(path), err)
	}
	defer f.Close()

	var blocks []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err == nil && strings.TrimSpace(pageText) != "" {
			blocks = append(blocks, pageText)
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		if table := serializeRows(rows); table != "" {
			blocks = append(blocks, table)
		}
	}

	ocrBlocks, err := e.ocrPDF(ctx, path)
	if err != nil {
		e.logger.Warn("pdf ocr failed, continuing with gathered text",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
	} else {
		blocks = append(blocks, ocrBlocks...)
	}

	return dedupeBlocks(blocks), nil
}

// serializeRows renders positioned text rows as comma-joined cells, one row
// per line. Fragments separated by more than a font-width of horizontal gap
// start a new cell.
func serializeRows(rows pdf.Rows) string {
	var sb strings.Builder
	for _, row := range rows {
		if len(row.Content) == 0 {
			continue
		}
		var cells []string
		var cell strings.Builder
		prevEnd := row.Content[0].X
		for _, frag := range row.Content {
			gap := frag.X - prevEnd
			if cell.Len() > 0 && gap > frag.FontSize {
				cells = append(cells, cell.String())
				cell.Reset()
			}
			cell.WriteString(frag.S)
			prevEnd = frag.X + frag.W
		}
		if cell.Len() > 0 {
			cells = append(cells, cell.String())
		}
		// A single cell is just line text, already captured by GetPlainText.
		if len(cells) < 2 {
			continue
		}
		sb.WriteString(strings.Join(cells, ", "))
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

// ocrPDF renders each page to an image and runs OCR on the binarized result.
func (e *Extractor) ocrPDF(ctx context.Context, path string) ([]string, error) {
	images, err := renderPDFPages(path)
	if err != nil {
		return nil, err
	}

	var blocks []string
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := ocrImage(img)
		if err != nil {
			e.logger.Warn("ocr failed for page",
				zap.String("file", filepath.Base(path)),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}
