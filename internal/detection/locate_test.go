package detection

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

const (
	testBackground = 220.0
	testDepth      = 150.0
	testSigma      = 2.0
)

type spot struct {
	x, y float64
}

// darkSpots renders Gaussian dark particles on a bright background.
func darkSpots(width, height int, spots ...spot) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := testBackground
			for _, s := range spots {
				dx := float64(x) - s.x
				dy := float64(y) - s.y
				v -= testDepth * math.Exp(-(dx*dx+dy*dy)/(2*testSigma*testSigma))
			}
			if v < 0 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(v))})
		}
	}
	return img
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{"defaults", NewParams(11, 100), false},
		{"zero min mass", NewParams(7, 0), false},
		{"even diameter", NewParams(10, 100), true},
		{"zero diameter", NewParams(0, 100), true},
		{"negative diameter", NewParams(-3, 100), true},
		{"negative min mass", NewParams(11, -1), true},
		{"negative separation", Params{Diameter: 11, Separation: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error %v does not wrap ErrInvalidParams", err)
			}
		})
	}
}

func TestLocate_SingleSpot(t *testing.T) {
	img := darkSpots(64, 48, spot{30.3, 20.6})

	features, err := Locate(img, 7, NewParams(11, 100))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d: %+v", len(features), features)
	}
	f := features[0]
	if f.Frame != 7 {
		t.Errorf("Frame: got %d, want 7", f.Frame)
	}
	if math.Abs(f.X-30.3) > 0.5 || math.Abs(f.Y-20.6) > 0.5 {
		t.Errorf("position: got (%.2f, %.2f), want near (30.3, 20.6)", f.X, f.Y)
	}
	if f.Mass <= 100 {
		t.Errorf("Mass: got %.1f, want > 100", f.Mass)
	}
	if f.Size <= 0 || f.Size > 5.5 {
		t.Errorf("Size: got %.2f, want in (0, 5.5]", f.Size)
	}
	if f.Ecc >= 0.2 {
		t.Errorf("Ecc: got %.3f, want < 0.2 for a round spot", f.Ecc)
	}
	if f.Signal <= 0 {
		t.Errorf("Signal: got %.2f, want > 0", f.Signal)
	}
}

func TestLocate_MinMassDiscards(t *testing.T) {
	img := darkSpots(64, 48, spot{30, 20})

	all, err := Locate(img, 0, NewParams(11, 0))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 feature at min mass 0, got %d", len(all))
	}

	// A threshold equal to the feature's own mass discards it: the bound is
	// strict.
	none, err := Locate(img, 0, NewParams(11, all[0].Mass))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no features at min mass %.1f, got %d", all[0].Mass, len(none))
	}
}

func TestLocate_BlankFrame(t *testing.T) {
	features, err := Locate(darkSpots(40, 40), 0, NewParams(11, 0))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("expected no features on a uniform frame, got %d", len(features))
	}
}

func TestLocate_TwoSpotsOrdered(t *testing.T) {
	img := darkSpots(80, 80, spot{60, 50}, spot{20, 20})

	features, err := Locate(img, 3, NewParams(11, 100))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}
	if features[0].Y > features[1].Y {
		t.Errorf("features not ordered by Y: %.1f then %.1f", features[0].Y, features[1].Y)
	}
	if math.Abs(features[0].X-20) > 0.5 || math.Abs(features[1].X-60) > 0.5 {
		t.Errorf("unexpected positions: %+v", features)
	}
}

func TestLocate_BorderSpotIgnored(t *testing.T) {
	img := darkSpots(40, 40, spot{2, 2})
	features, err := Locate(img, 0, NewParams(11, 0))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("expected border spot to be ignored, got %+v", features)
	}
}

func TestLocate_BrightParticlesWithoutInvert(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			dx, dy := float64(x)-24, float64(y)-24
			v := 30 + 150*math.Exp(-(dx*dx+dy*dy)/(2*testSigma*testSigma))
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(v))})
		}
	}
	p := NewParams(11, 100)
	p.Invert = false

	features, err := Locate(img, 0, p)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 bright feature, got %d", len(features))
	}
	if math.Abs(features[0].X-24) > 0.5 || math.Abs(features[0].Y-24) > 0.5 {
		t.Errorf("position: got (%.2f, %.2f), want near (24, 24)", features[0].X, features[0].Y)
	}
}

func TestLocate_InvalidParams(t *testing.T) {
	if _, err := Locate(darkSpots(20, 20), 0, NewParams(4, 0)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestRefine_OffsetsMatchFinalMask(t *testing.T) {
	// a steepening ramp keeps dragging the mask right until the iteration
	// limit runs out
	const width, height, radius = 120, 9, 3
	field := make([][]float64, height)
	for y := range field {
		field[y] = make([]float64, width)
		for x := range field[y] {
			field[y][x] = math.Exp(0.02 * float64(x*x))
		}
	}
	f, ok := refine(field, peak{x: 20, y: 4}, radius)
	if !ok {
		t.Fatal("refine rejected the ramp")
	}
	if f.X < 30 {
		t.Fatalf("X: got %.2f, the mask should have moved well right of 20", f.X)
	}
	for c := int(f.X) - radius; c <= int(f.X)+radius; c++ {
		if c-radius < 0 || c+radius >= width {
			continue
		}
		m := moments(field, c, 4, radius, 0, 0)
		if float64(c)+m.sx/m.mass == f.X {
			return
		}
	}
	t.Errorf("X %.4f is not the centroid of any mask position near it", f.X)
}

func TestBandpass_UniformIsZero(t *testing.T) {
	field := Bandpass(darkSpots(16, 12), 5, 1)
	if len(field) != 12 || len(field[0]) != 16 {
		t.Fatalf("unexpected field size %dx%d", len(field[0]), len(field))
	}
	for y := range field {
		for x := range field[y] {
			if field[y][x] != 0 {
				t.Fatalf("field[%d][%d] = %v, want 0", y, x, field[y][x])
			}
		}
	}
}

func TestFindPeaks_Separation(t *testing.T) {
	field := make([][]float64, 20)
	for y := range field {
		field[y] = make([]float64, 20)
	}
	field[10][8] = 5
	field[10][11] = 9 // brighter, within separation of the first
	field[3][15] = 4

	peaks := findPeaks(field, 2, 6, 1)
	if len(peaks) != 2 {
		t.Fatalf("expected 2 peaks, got %+v", peaks)
	}
	if peaks[0].x != 11 || peaks[0].y != 10 {
		t.Errorf("brightest peak first: got %+v", peaks[0])
	}
	if peaks[1].x != 15 || peaks[1].y != 3 {
		t.Errorf("second peak: got %+v", peaks[1])
	}
}

func TestGroupByFrame(t *testing.T) {
	frames, groups := GroupByFrame([]Feature{{Frame: 2}, {Frame: 0}, {Frame: 2}})
	if len(frames) != 2 || frames[0] != 0 || frames[1] != 2 {
		t.Fatalf("frames: got %v, want [0 2]", frames)
	}
	if len(groups[2]) != 2 {
		t.Errorf("frame 2: got %d features, want 2", len(groups[2]))
	}
}
