package explore

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// MassSize writes a scatter of per-particle mean size against mean mass to
// path. Fed with the trajectories that survived only the stub filter, it
// shows where the mass and size bounds of the attribute filter cut.
func MassSize(summaries []tracking.ParticleSummary, path string) error {
	p := newPlot(fmt.Sprintf("Mass vs size (%d particles)", len(summaries)), "Mass", "Size (px)", len(summaries) == 0)

	if len(summaries) > 0 {
		xys := make(plotter.XYs, len(summaries))
		for i, s := range summaries {
			xys[i] = plotter.XY{X: s.Mass, Y: s.Size}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Color = color.RGBA{R: 40, G: 40, B: 40, A: 255}
		p.Add(sc)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
