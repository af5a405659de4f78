package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"raster-export/internal/apperr"
	"raster-export/pkg/colorutil"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encode writes img to w as png, jpg, tif or bmp. JPEG has no alpha channel
// so transparent pixels are flattened onto white.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: 95})
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("output format %q: %w", format, apperr.ErrValidation)
}

// Extension returns the file suffix for format, including the dot.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return ".jpg"
	case "tif", "tiff":
		return ".tif"
	}
	return "." + strings.ToLower(format)
}

func flatten(img image.Image) image.Image {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(colorutil.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}
