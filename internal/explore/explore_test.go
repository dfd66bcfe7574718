package explore

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// fixedLocator returns canned features regardless of the frame.
type fixedLocator struct {
	features []detection.Feature
	frames   []int
}

func (l *fixedLocator) Locate(_ image.Image, frame int, _ detection.Params) ([]detection.Feature, error) {
	l.frames = append(l.frames, frame)
	out := make([]detection.Feature, len(l.features))
	for i, f := range l.features {
		f.Frame = frame
		out[i] = f
	}
	return out, nil
}

func grayFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img
}

func threeFrames() *imaging.Sequence {
	return imaging.NewSequence([]imaging.Frame{
		{Index: 4, Image: grayFrame()},
		{Index: 5, Image: grayFrame()},
		{Index: 6, Image: grayFrame()},
	})
}

func options(dir string, loc detection.Locator) Options {
	opts := DefaultOptions()
	opts.OutDir = dir
	opts.Params = detection.NewParams(5, 10)
	opts.Locator = loc
	return opts
}

func TestExplore_WritesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	loc := &fixedLocator{features: []detection.Feature{
		{X: 5.25, Y: 6.5, Mass: 100},
		{X: 12.75, Y: 9.1, Mass: 300},
		{X: 20.5, Y: 15.9, Mass: 200},
	}}

	rep, err := Explore(threeFrames(), options(dir, loc))
	if err != nil {
		t.Fatalf("Explore failed: %v", err)
	}
	if rep.Frame != 6 {
		t.Errorf("default frame: got %d, want the last index 6", rep.Frame)
	}
	if rep.Count != 3 {
		t.Errorf("Count: got %d, want 3", rep.Count)
	}
	if rep.Mass.Min != 100 || rep.Mass.Max != 300 || rep.Mass.Median != 200 {
		t.Errorf("mass quantiles: got %+v", rep.Mass)
	}
	for _, name := range []string{FrameFile, AnnotatedFile, MassHistogramFile, SubpixelBiasFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
	if len(rep.Files) != 4 {
		t.Errorf("Files: got %v", rep.Files)
	}

	annotated, err := imaging.LoadImage(filepath.Join(dir, AnnotatedFile))
	if err != nil {
		t.Fatalf("load annotated: %v", err)
	}
	if b := annotated.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("annotated size: got %dx%d", b.Dx(), b.Dy())
	}
}

func TestExplore_FrameSelection(t *testing.T) {
	tests := []struct {
		number int
		want   int
	}{
		{0, 4},
		{1, 5},
		{-3, 4},
	}
	for _, tt := range tests {
		loc := &fixedLocator{}
		opts := options(t.TempDir(), loc)
		opts.FrameNumber = tt.number
		rep, err := Explore(threeFrames(), opts)
		if err != nil {
			t.Fatalf("FrameNumber %d: %v", tt.number, err)
		}
		if rep.Frame != tt.want || len(loc.frames) != 1 || loc.frames[0] != tt.want {
			t.Errorf("FrameNumber %d: explored %d (locator saw %v), want %d", tt.number, rep.Frame, loc.frames, tt.want)
		}
	}

	opts := options(t.TempDir(), &fixedLocator{})
	opts.FrameNumber = 3
	if _, err := Explore(threeFrames(), opts); err == nil {
		t.Error("out-of-range frame number should fail")
	}
}

func TestExplore_NoFeatures(t *testing.T) {
	dir := t.TempDir()
	rep, err := Explore(threeFrames(), options(dir, &fixedLocator{}))
	if err != nil {
		t.Fatalf("Explore failed: %v", err)
	}
	if rep.Count != 0 || rep.Mass != (Quantiles{}) {
		t.Errorf("empty report: got %+v", rep)
	}
	if _, err := os.Stat(filepath.Join(dir, MassHistogramFile)); err != nil {
		t.Errorf("histogram should still be written: %v", err)
	}
}

func TestExplore_Errors(t *testing.T) {
	if _, err := Explore(threeFrames(), options("", &fixedLocator{})); !errors.Is(err, detection.ErrMissingOutputDir) {
		t.Errorf("missing dir: got %v", err)
	}

	opts := options(t.TempDir(), &fixedLocator{})
	opts.Params.Diameter = 4
	if _, err := Explore(threeFrames(), opts); !errors.Is(err, detection.ErrInvalidParams) {
		t.Errorf("even diameter: got %v", err)
	}

	empty := imaging.NewSequence(nil)
	if _, err := Explore(empty, options(t.TempDir(), &fixedLocator{})); !errors.Is(err, imaging.ErrNoFrames) {
		t.Errorf("empty sequence: got %v", err)
	}
}

func TestExplore_CentroidLocator(t *testing.T) {
	// one Gaussian dark particle at (30.3, 20.6)
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			dx, dy := float64(x)-30.3, float64(y)-20.6
			v := 220 - 150*math.Exp(-(dx*dx+dy*dy)/8)
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(v))})
		}
	}
	seq := imaging.NewSequence([]imaging.Frame{{Index: 0, Image: img}})
	opts := DefaultOptions()
	opts.OutDir = t.TempDir()
	opts.Params = detection.NewParams(11, 100)

	rep, err := Explore(seq, opts)
	if err != nil {
		t.Fatalf("Explore failed: %v", err)
	}
	if rep.Count != 1 {
		t.Fatalf("Count: got %d, want 1", rep.Count)
	}
	f := rep.Features[0]
	if math.Abs(f.X-30.3) > 0.5 || math.Abs(f.Y-20.6) > 0.5 {
		t.Errorf("centroid: got (%.2f, %.2f), want near (30.3, 20.6)", f.X, f.Y)
	}
}

func TestMassSize(t *testing.T) {
	dir := t.TempDir()
	pts := []tracking.Point{
		{Feature: detection.Feature{Frame: 0, Mass: 100, Size: 2}, Particle: 0},
		{Feature: detection.Feature{Frame: 1, Mass: 120, Size: 2.2}, Particle: 0},
		{Feature: detection.Feature{Frame: 0, Mass: 400, Size: 3}, Particle: 1},
	}
	path := filepath.Join(dir, MassSizeFile)
	if err := MassSize(tracking.Summarize(pts), path); err != nil {
		t.Fatalf("MassSize failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("scatter not written: %v", err)
	}

	if err := MassSize(nil, filepath.Join(dir, "empty.png")); err != nil {
		t.Errorf("empty scatter should render: %v", err)
	}
}

func TestDriftPlot(t *testing.T) {
	dir := t.TempDir()
	pts := []tracking.Point{
		{Feature: detection.Feature{Frame: 0, X: 10, Y: 10}, Particle: 0},
		{Feature: detection.Feature{Frame: 1, X: 11, Y: 10.5}, Particle: 0},
		{Feature: detection.Feature{Frame: 2, X: 12, Y: 11}, Particle: 0},
	}
	path := filepath.Join(dir, DriftFile)
	if err := DriftPlot(tracking.ComputeDrift(pts, 0), path); err != nil {
		t.Fatalf("DriftPlot failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("drift plot not written: %v", err)
	}
	if err := DriftPlot(nil, filepath.Join(dir, "empty.png")); err != nil {
		t.Errorf("empty drift plot should render: %v", err)
	}
}
