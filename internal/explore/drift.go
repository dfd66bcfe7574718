package explore

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// DriftFile is written next to the exported trajectory stack.
const DriftFile = "drift.png"

// DriftPlot writes the cumulative x and y drift against frame number to
// path.
func DriftPlot(drift []tracking.Drift, path string) error {
	p := newPlot("Collective drift", "Frame", "Displacement (px)", len(drift) == 0)

	if len(drift) > 0 {
		xs := make(plotter.XYs, len(drift))
		ys := make(plotter.XYs, len(drift))
		for i, d := range drift {
			xs[i] = plotter.XY{X: float64(d.Frame), Y: d.X}
			ys[i] = plotter.XY{X: float64(d.Frame), Y: d.Y}
		}
		lx, err := plotter.NewLine(xs)
		if err != nil {
			return err
		}
		lx.Color = xColor
		ly, err := plotter.NewLine(ys)
		if err != nil {
			return err
		}
		ly.Color = yColor
		p.Add(lx, ly)
		p.Legend.Add("x", lx)
		p.Legend.Add("y", ly)
		p.Legend.Top = true
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
