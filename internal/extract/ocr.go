//go:build cgo

package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// ocrDPI is the render resolution for PDF pages before OCR.
const ocrDPI = 400

// ocrImage binarizes img and runs Tesseract over it.
func ocrImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, binarize(img)); err != nil {
		return "", fmt.Errorf("encoding image for ocr: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("eng"); err != nil {
		return "", fmt.Errorf("configuring ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("loading image into ocr: %w", err)
	}
	return client.Text()
}

// renderPDFPages rasterizes every page of the PDF at ocrDPI.
func renderPDFPages(path string) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	defer doc.Close()

	images := make([]image.Image, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, ocrDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering pdf page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}
