package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used when frames are written as JPEG.
const DefaultJPEGQuality = 95

// ToGray converts an image to a single-channel 8-bit image using ITU-R BT.601
// luminance weights. A *image.Gray input is returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return effect.Grayscale(img)
}

// InvertGray returns the photographic negative of img as a grayscale image.
// Dark particles on a bright background become bright peaks.
func InvertGray(img image.Image) *image.Gray {
	return effect.Grayscale(effect.Invert(ToGray(img)))
}

// Luminance returns the grayscale pixels of img as a row-major float64 grid
// in the range 0-255, indexed [y][x] from the image's top-left corner.
func Luminance(img image.Image) [][]float64 {
	g := ToGray(img)
	b := g.Bounds()
	out := make([][]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]float64, b.Dx())
		off := (y+b.Min.Y-g.Rect.Min.Y)*g.Stride - g.Rect.Min.X + b.Min.X
		for x := 0; x < b.Dx(); x++ {
			row[x] = float64(g.Pix[off+x])
		}
		out[y] = row
	}
	return out
}

// IsGray reports whether img stores a single channel.
func IsGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

// Save writes img to path, choosing the encoder from the file extension.
// The parent directory must exist.
func Save(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return fmt.Errorf("cannot infer image format for %s", path)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(DefaultJPEGQuality)); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}
