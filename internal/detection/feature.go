package detection

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultInvert is the polarity used throughout the pipeline: particles are
// darker than the background and are inverted before peak finding.
const DefaultInvert = true

// DefaultNoiseSize is the Gaussian smoothing radius applied before peak
// finding, in pixels.
const DefaultNoiseSize = 1.0

var (
	// ErrInvalidParams reports unusable localization parameters.
	ErrInvalidParams = errors.New("invalid detection parameters")

	// ErrMissingOutputDir is returned when annotated frames are requested
	// without a directory to write them to.
	ErrMissingOutputDir = errors.New("output directory required when saving annotated frames")
)

// Feature is one located particle candidate in one frame.
type Feature struct {
	// Frame is the index of the frame the feature was found in.
	Frame int `json:"frame"`

	// X and Y are the sub-pixel centroid, in pixels from the top-left corner.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Mass is the integrated bandpassed brightness inside the particle mask.
	Mass float64 `json:"mass"`

	// Size is the radius of gyration of the brightness distribution.
	Size float64 `json:"size"`

	// Ecc is the eccentricity: 0 for a circular spot, approaching 1 for a line.
	Ecc float64 `json:"ecc"`

	// Signal is the peak bandpassed brightness.
	Signal float64 `json:"signal"`
}

// Params are the localization parameters for one detection run.
type Params struct {
	// Diameter is the expected particle footprint in pixels. Positive and odd.
	Diameter int `json:"diameter"`

	// MinMass discards candidates whose mass is at or below it.
	MinMass float64 `json:"min_mass"`

	// Invert treats particles as darker than the background.
	Invert bool `json:"invert"`

	// NoiseSize is the Gaussian smoothing radius. Zero disables smoothing.
	NoiseSize float64 `json:"noise_size,omitempty"`

	// Separation is the minimum distance between two features. Zero means
	// Diameter+1.
	Separation float64 `json:"separation,omitempty"`

	// Threshold is the minimum bandpassed peak value. Zero means 1.
	Threshold float64 `json:"threshold,omitempty"`
}

// NewParams returns parameters for the given pair with every other field at
// its default.
func NewParams(diameter int, minMass float64) Params {
	return Params{
		Diameter:  diameter,
		MinMass:   minMass,
		Invert:    DefaultInvert,
		NoiseSize: DefaultNoiseSize,
	}
}

// Validate checks the parameters. Errors wrap ErrInvalidParams.
func (p Params) Validate() error {
	if p.Diameter <= 0 || p.Diameter%2 == 0 {
		return fmt.Errorf("%w: diameter must be a positive odd integer, got %d", ErrInvalidParams, p.Diameter)
	}
	if p.MinMass < 0 {
		return fmt.Errorf("%w: min mass must be non-negative, got %g", ErrInvalidParams, p.MinMass)
	}
	if p.NoiseSize < 0 {
		return fmt.Errorf("%w: noise size must be non-negative, got %g", ErrInvalidParams, p.NoiseSize)
	}
	if p.Separation < 0 {
		return fmt.Errorf("%w: separation must be non-negative, got %g", ErrInvalidParams, p.Separation)
	}
	if p.Threshold < 0 {
		return fmt.Errorf("%w: threshold must be non-negative, got %g", ErrInvalidParams, p.Threshold)
	}
	return nil
}

// Radius is the integer mask radius, Diameter/2.
func (p Params) Radius() int {
	return p.Diameter / 2
}

func (p Params) separation() float64 {
	if p.Separation > 0 {
		return p.Separation
	}
	return float64(p.Diameter + 1)
}

func (p Params) threshold() float64 {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return 1
}

// SortFeatures orders features by frame, then by Y and X. The slice is sorted
// in place.
func SortFeatures(features []Feature) {
	sort.SliceStable(features, func(i, j int) bool {
		a, b := features[i], features[j]
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// GroupByFrame splits features into per-frame slices, keyed by frame index.
// The returned indices are ascending.
func GroupByFrame(features []Feature) ([]int, map[int][]Feature) {
	groups := make(map[int][]Feature)
	for _, f := range features {
		groups[f.Frame] = append(groups[f.Frame], f)
	}
	frames := make([]int, 0, len(groups))
	for idx := range groups {
		frames = append(frames, idx)
	}
	sort.Ints(frames)
	return frames, groups
}
