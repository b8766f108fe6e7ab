//go:build !cgo

package extract

import (
	"errors"
	"image"
)

// ErrOCRUnavailable is returned when the binary was built without CGO.
// PDF extraction treats it as a non-fatal skip; image extraction fails.
var ErrOCRUnavailable = errors.New("ocr: not available (binary built without CGO support)")

func ocrImage(_ image.Image) (string, error) {
	return "", ErrOCRUnavailable
}

func renderPDFPages(_ string) ([]image.Image, error) {
	return nil, ErrOCRUnavailable
}
