// Package explore renders the diagnostics used to choose detection
// parameters on a single frame before running a batch.
package explore

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
)

// Output file names written into Options.OutDir.
const (
	FrameFile         = "frame.png"
	AnnotatedFile     = "annotated.png"
	MassHistogramFile = "mass_histogram.png"
	SubpixelBiasFile  = "subpx_bias.png"
	MassSizeFile      = "mass_size.png"
)

// DefaultBins is the histogram bin count.
const DefaultBins = 20

var (
	markerColor = color.RGBA{R: 255, A: 255}
	massColor   = color.RGBA{R: 70, G: 110, B: 200, A: 255}
	xColor      = color.RGBA{R: 220, G: 60, B: 60, A: 160}
	yColor      = color.RGBA{R: 60, G: 140, B: 60, A: 160}
)

// Options selects the frame and detection settings to explore.
type Options struct {
	// FrameNumber is a position in the sequence; negative counts from the
	// end.
	FrameNumber int
	Bins        int
	OutDir      string
	Params      detection.Params

	Locator  detection.Locator
	Renderer detection.FeatureRenderer
	Logger   *zap.Logger
}

// DefaultOptions explores the last frame.
func DefaultOptions() Options {
	return Options{FrameNumber: -1, Bins: DefaultBins}
}

// Quantiles summarises the mass distribution.
type Quantiles struct {
	Min    float64 `json:"min"`
	Q10    float64 `json:"q10"`
	Median float64 `json:"median"`
	Q90    float64 `json:"q90"`
	Max    float64 `json:"max"`
}

// Report is the outcome of one exploration.
type Report struct {
	Frame    int                 `json:"frame"`
	Count    int                 `json:"count"`
	Mass     Quantiles           `json:"mass"`
	Features []detection.Feature `json:"features"`
	Files    []string            `json:"files"`
}

// Explore detects features on one frame of seq and writes the raw frame, the
// annotated frame, the mass histogram and the sub-pixel bias histogram into
// opts.OutDir.
//
// An unbiased detection has flat sub-pixel histograms; a pile-up near 0 and 1
// usually means the diameter is too small.
func Explore(seq *imaging.Sequence, opts Options) (*Report, error) {
	if opts.OutDir == "" {
		return nil, detection.ErrMissingOutputDir
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)
	if opts.Bins <= 0 {
		opts.Bins = DefaultBins
	}
	locator := opts.Locator
	if locator == nil {
		locator = detection.CentroidLocator{}
	}

	pos, err := seq.Resolve(opts.FrameNumber)
	if err != nil {
		return nil, err
	}
	frame := seq.Frame(pos)
	img, err := seq.Image(pos)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}

	features, err := locator.Locate(img, frame.Index, opts.Params)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	report := &Report{
		Frame:    frame.Index,
		Count:    len(features),
		Mass:     massQuantiles(features),
		Features: features,
	}

	save := func(name string, write func(string) error) error {
		path := filepath.Join(opts.OutDir, name)
		if err := write(path); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		report.Files = append(report.Files, path)
		return nil
	}

	if err := save(FrameFile, func(p string) error { return imaging.Save(p, img) }); err != nil {
		return nil, err
	}
	if err := save(AnnotatedFile, func(p string) error {
		return imaging.Save(p, annotate(opts.Renderer, img, features, opts.Params.Radius()))
	}); err != nil {
		return nil, err
	}
	if err := save(MassHistogramFile, func(p string) error {
		return massHistogram(features, opts.Bins, p)
	}); err != nil {
		return nil, err
	}
	if err := save(SubpixelBiasFile, func(p string) error {
		return subpixelBias(features, opts.Bins, p)
	}); err != nil {
		return nil, err
	}

	logger.Info("exploration written",
		zap.Int("frame", frame.Index),
		zap.Int("features", report.Count),
		zap.Float64("median_mass", report.Mass.Median),
		zap.String("dir", opts.OutDir),
	)
	return report, nil
}

// annotate circles features with r, or with plain red outlines of the
// detection radius when no renderer is configured.
func annotate(r detection.FeatureRenderer, img image.Image, features []detection.Feature, radius int) *image.RGBA {
	if r != nil {
		return r.Features(img, features)
	}
	canvas := imaging.Canvas(img)
	for _, f := range features {
		imaging.DrawCircle(canvas, f.X, f.Y, float64(radius+2), 1, markerColor)
	}
	return canvas
}

func massQuantiles(features []detection.Feature) Quantiles {
	if len(features) == 0 {
		return Quantiles{}
	}
	mass := make([]float64, len(features))
	for i, f := range features {
		mass[i] = f.Mass
	}
	sort.Float64s(mass)
	q := func(p float64) float64 { return stat.Quantile(p, stat.Empirical, mass, nil) }
	return Quantiles{
		Min:    mass[0],
		Q10:    q(0.1),
		Median: q(0.5),
		Q90:    q(0.9),
		Max:    mass[len(mass)-1],
	}
}

// newPlot returns a titled plot. Plots without data get a fixed unit range so
// that they still render.
func newPlot(title, xLabel, yLabel string, empty bool) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	if empty {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	}
	return p
}

func massHistogram(features []detection.Feature, bins int, path string) error {
	p := newPlot(fmt.Sprintf("Integrated brightness (%d features)", len(features)), "Mass", "Count", len(features) == 0)
	if len(features) > 0 {
		values := make(plotter.Values, len(features))
		for i, f := range features {
			values[i] = f.Mass
		}
		h, err := plotter.NewHist(values, bins)
		if err != nil {
			return err
		}
		h.FillColor = massColor
		p.Add(h)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func subpixelBias(features []detection.Feature, bins int, path string) error {
	p := newPlot("Sub-pixel bias", "Fractional position", "Count", len(features) == 0)
	if len(features) > 0 {
		xs := make(plotter.Values, len(features))
		ys := make(plotter.Values, len(features))
		for i, f := range features {
			xs[i] = f.X - math.Floor(f.X)
			ys[i] = f.Y - math.Floor(f.Y)
		}
		for _, axis := range []struct {
			name   string
			values plotter.Values
			fill   color.Color
		}{
			{"x", xs, xColor},
			{"y", ys, yColor},
		} {
			h, err := plotter.NewHist(axis.values, bins)
			if err != nil {
				return err
			}
			h.FillColor = axis.fill
			p.Add(h)
			p.Legend.Add(axis.name, h)
		}
		p.X.Min, p.X.Max = 0, 1
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
