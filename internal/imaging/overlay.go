package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas returns a fresh RGBA copy of img with its origin moved to (0,0).
// Overlays are always drawn on a canvas so the source frame stays untouched.
func Canvas(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Scale resizes img by factor using Lanczos resampling. A factor of 1 or less
// than or equal to zero returns a canvas copy at the original size.
func Scale(img image.Image, factor float64) *image.RGBA {
	if factor == 1.0 || factor <= 0 {
		return Canvas(img)
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	return Canvas(imaging.Resize(img, w, h, imaging.Lanczos))
}

// DrawCircle draws a circle outline of the given radius and stroke width
// centred on the sub-pixel position (cx, cy). Pixels outside the image are
// skipped.
func DrawCircle(img *image.RGBA, cx, cy, radius float64, width int, c color.Color) {
	if radius <= 0 {
		return
	}
	if width < 1 {
		width = 1
	}
	half := float64(width) / 2
	inner := radius - half
	outer := radius + half
	bounds := img.Bounds()

	x0 := int(math.Floor(cx - outer))
	x1 := int(math.Ceil(cx + outer))
	y0 := int(math.Floor(cy - outer))
	y1 := int(math.Ceil(cy + outer))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if d >= inner && d <= outer {
				img.Set(x, y, c)
			}
		}
	}
}

// DrawLine draws a straight segment between two sub-pixel positions using
// Bresenham's algorithm; width > 1 thickens the stroke with a square brush.
func DrawLine(img *image.RGBA, x0, y0, x1, y1 float64, width int, c color.Color) {
	ax, ay := int(math.Round(x0)), int(math.Round(y0))
	bx, by := int(math.Round(x1)), int(math.Round(y1))
	if width < 1 {
		width = 1
	}
	lo := -(width - 1) / 2
	hi := width / 2
	bounds := img.Bounds()

	plot := func(x, y int) {
		for dy := lo; dy <= hi; dy++ {
			for dx := lo; dx <= hi; dx++ {
				p := image.Point{X: x + dx, Y: y + dy}
				if p.In(bounds) {
					img.Set(p.X, p.Y, c)
				}
			}
		}
	}

	dx := abs(bx - ax)
	dy := -abs(by - ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	e := dx + dy
	for {
		plot(ax, ay)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += sx
		}
		if e2 <= dx {
			e += dx
			ay += sy
		}
	}
}

// DrawPolyline connects consecutive points with DrawLine.
func DrawPolyline(img *image.RGBA, xs, ys []float64, width int, c color.Color) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n == 1 {
		DrawLine(img, xs[0], ys[0], xs[0], ys[0], width, c)
		return
	}
	for i := 1; i < n; i++ {
		DrawLine(img, xs[i-1], ys[i-1], xs[i], ys[i], width, c)
	}
}

// DrawLabel draws text with its top-left corner at (x, y) over a translucent
// background box, using the 7x13 basic font.
func DrawLabel(img *image.RGBA, x, y int, text string, fg, bg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(x-1, y-1, x+width+1, y+height+1).Intersect(img.Bounds())
	if !box.Empty() {
		draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
