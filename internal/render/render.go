// Package render draws detections and trajectories over source frames and
// exports annotated sequences as multi-page TIFF stacks.
//
// Rendering never modifies its inputs: every page is drawn on a fresh RGBA
// copy of the frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// DefaultRadius is the marker radius used when Renderer.Radius is zero.
const DefaultRadius = 7.0

var (
	labelForeground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelBackground = color.RGBA{A: 160}
)

// Renderer holds overlay appearance.
type Renderer struct {
	// FeatureColor outlines current-frame detections.
	FeatureColor color.RGBA

	// Radius of the detection circles, in source pixels.
	Radius float64

	// Scale resizes the frame before drawing; 1 keeps the source size.
	Scale float64

	LineWidth int

	// Labels draws the particle id next to each current-frame detection.
	Labels bool
}

// NewRenderer returns red markers at source scale with labels.
func NewRenderer() Renderer {
	return Renderer{
		FeatureColor: color.RGBA{R: 255, G: 48, B: 48, A: 255},
		Radius:       DefaultRadius,
		Scale:        1,
		LineWidth:    1,
		Labels:       true,
	}
}

func (r Renderer) scale() float64 {
	if r.Scale <= 0 {
		return 1
	}
	return r.Scale
}

func (r Renderer) radius() float64 {
	if r.Radius <= 0 {
		return DefaultRadius
	}
	return r.Radius
}

func (r Renderer) width() int {
	if r.LineWidth < 1 {
		return 1
	}
	return r.LineWidth
}

// Features returns frame with every feature circled.
func (r Renderer) Features(frame image.Image, features []detection.Feature) *image.RGBA {
	s := r.scale()
	canvas := imaging.Scale(frame, s)
	for _, f := range features {
		imaging.DrawCircle(canvas, f.X*s, f.Y*s, r.radius()*s, r.width(), r.FeatureColor)
	}
	return canvas
}

// Trajectories returns frame with the path of every particle over frames
// <= upTo, each particle in its own colour, and circles on the detections of
// frame upTo.
func (r Renderer) Trajectories(frame image.Image, points []tracking.Point, upTo int) *image.RGBA {
	return r.drawTrajectories(frame, newTrajectorySet(points), upTo)
}

// trajectorySet caches the per-particle grouping across pages.
type trajectorySet struct {
	ids    []int
	groups map[int][]tracking.Point
}

func newTrajectorySet(points []tracking.Point) *trajectorySet {
	return &trajectorySet{ids: tracking.Particles(points), groups: tracking.ByParticle(points)}
}

func (r Renderer) drawTrajectories(frame image.Image, set *trajectorySet, upTo int) *image.RGBA {
	s := r.scale()
	canvas := imaging.Scale(frame, s)

	for _, id := range set.ids {
		group := set.groups[id]
		xs := make([]float64, 0, len(group))
		ys := make([]float64, 0, len(group))
		for _, pt := range group {
			if pt.Frame > upTo {
				break
			}
			xs = append(xs, pt.X*s)
			ys = append(ys, pt.Y*s)
		}
		if len(xs) == 0 {
			continue
		}
		imaging.DrawPolyline(canvas, xs, ys, r.width(), imaging.ParticleColor(id))
	}

	for _, id := range set.ids {
		for _, pt := range set.groups[id] {
			if pt.Frame != upTo {
				continue
			}
			rad := r.radius() * s
			imaging.DrawCircle(canvas, pt.X*s, pt.Y*s, rad, r.width(), r.FeatureColor)
			if r.Labels {
				lx := int(math.Round(pt.X*s + rad + 2))
				ly := int(math.Round(pt.Y*s - rad))
				imaging.DrawLabel(canvas, lx, ly, fmt.Sprint(id), labelForeground, labelBackground)
			}
		}
	}
	return canvas
}
