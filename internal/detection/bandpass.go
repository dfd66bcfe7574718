package detection

import (
	"image"

	"github.com/anthonynsimon/bild/blur"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
)

// Bandpass suppresses pixel noise and long-wavelength background.
//
// The image is smoothed with a Gaussian of radius noiseSize, then the
// boxcar average over a diameter-wide window of the unsmoothed image is
// subtracted. Negative values are clipped to zero. The result is indexed
// [y][x] from the image's top-left corner.
func Bandpass(gray *image.Gray, diameter int, noiseSize float64) [][]float64 {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	raw := imaging.Luminance(gray)

	smoothed := raw
	if noiseSize > 0 {
		smoothed = redField(blur.Gaussian(gray, noiseSize))
	}
	background := boxcar(raw, width, height, diameter)

	out := make([][]float64, height)
	for y := 0; y < height; y++ {
		out[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			v := smoothed[y][x] - background[y][x]
			if v > 0 {
				out[y][x] = v
			}
		}
	}
	return out
}

// boxcar returns the moving average over a size x size window. Borders
// replicate the edge pixels.
func boxcar(img [][]float64, width, height, size int) [][]float64 {
	half := size / 2
	rows := make([][]float64, height)
	for y := 0; y < height; y++ {
		rows[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sum += img[y][clamp(x+k, 0, width-1)]
			}
			rows[y][x] = sum / float64(2*half+1)
		}
	}

	out := make([][]float64, height)
	for y := 0; y < height; y++ {
		out[y] = make([]float64, width)
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sum += rows[clamp(y+k, 0, height-1)][x]
			}
			out[y][x] = sum / float64(2*half+1)
		}
	}
	return out
}

// redField reads the red channel of a blurred gray image; all three colour
// channels are equal.
func redField(img *image.RGBA) [][]float64 {
	b := img.Bounds()
	out := make([][]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]float64, b.Dx())
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := range row {
			row[x] = float64(img.Pix[off+4*x])
		}
		out[y] = row
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
