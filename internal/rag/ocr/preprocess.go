package ocr

import (
	"image"
	"image/draw"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Preprocess prepares a rendered page for tesseract: grayscale, +30% contrast, light sharpening and a
// 3x3 median filter against scanner speckle.
func Preprocess(img image.Image) *image.Gray {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, (config.OCRContrastFactor-1)*100)
	out = imaging.Sharpen(out, config.OCRSharpenSigma)
	return medianFilter3(out)
}

func medianFilter3(src image.Image) *image.Gray {
	filtered := effect.Median(src, 1)
	b := filtered.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), filtered, b.Min, draw.Src)
	return dst
}
