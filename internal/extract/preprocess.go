package extract

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// binarizeThreshold separates ink from paper after grayscale conversion.
// Pixels below the threshold become black, the rest white, which sharpens
// contrast for the OCR engine.
const binarizeThreshold = 150

// binarize converts an image to grayscale and applies a hard threshold.
func binarize(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()

	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(gray.At(x, y)).(color.Gray)
			if c.Y < binarizeThreshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
