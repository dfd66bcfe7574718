package tracking

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults for linking and filtering.
const (
	DefaultSearchRange = 15.0
	DefaultMemory      = 5
	DefaultMaxSize     = 15.0

	// DefaultMaxEcc rejects visibly elongated detections.
	DefaultMaxEcc = 0.2
)

// ErrSizeBoundRequired is returned when no size bound has been chosen.
var ErrSizeBoundRequired = errors.New("size bound must be chosen: diameter, minmass or fixed")

// LinkParams bound which detections may be linked.
type LinkParams struct {
	// SearchRange is the largest displacement, in pixels, between two linked
	// detections.
	SearchRange float64 `json:"search_range"`

	// Memory is the number of consecutive frames a particle may be missing
	// and keep its id.
	Memory int `json:"memory"`
}

// DefaultLinkParams returns SearchRange 15 and Memory 5.
func DefaultLinkParams() LinkParams {
	return LinkParams{SearchRange: DefaultSearchRange, Memory: DefaultMemory}
}

// Validate checks the bounds.
func (p LinkParams) Validate() error {
	if p.SearchRange <= 0 {
		return fmt.Errorf("search range must be positive, got %g", p.SearchRange)
	}
	if p.Memory < 0 {
		return fmt.Errorf("memory must be non-negative, got %d", p.Memory)
	}
	return nil
}

// SizeBound selects the upper size limit used by attribute filtering.
type SizeBound string

// Size bounds. SizeBoundDiameter uses the detection diameter, SizeBoundMinMass
// reuses the min-mass value and SizeBoundFixed uses TrackParams.MaxSize.
const (
	SizeBoundDiameter SizeBound = "diameter"
	SizeBoundMinMass  SizeBound = "minmass"
	SizeBoundFixed    SizeBound = "fixed"
)

// ParseSizeBound maps a configuration value to a SizeBound. The empty string
// is rejected with ErrSizeBoundRequired.
func ParseSizeBound(s string) (SizeBound, error) {
	switch b := SizeBound(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return "", ErrSizeBoundRequired
	case SizeBoundDiameter, SizeBoundMinMass, SizeBoundFixed:
		return b, nil
	default:
		return "", fmt.Errorf("unknown size bound %q (want diameter, minmass or fixed)", s)
	}
}

// FilterOrder selects which filter runs first.
type FilterOrder string

const (
	StubsFirst      FilterOrder = "stubs-first"
	AttributesFirst FilterOrder = "attributes-first"
)

// ParseFilterOrder maps a configuration value to a FilterOrder; empty means
// StubsFirst.
func ParseFilterOrder(s string) (FilterOrder, error) {
	switch o := FilterOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", StubsFirst:
		return StubsFirst, nil
	case AttributesFirst:
		return o, nil
	default:
		return "", fmt.Errorf("unknown filter order %q (want %s or %s)", s, StubsFirst, AttributesFirst)
	}
}

// Thresholds are applied uniformly to every trajectory.
type Thresholds struct {
	MinLength int     `json:"min_length"`
	MinMass   float64 `json:"min_mass"`
	MaxSize   float64 `json:"max_size"`
	MaxEcc    float64 `json:"max_ecc"`
}

// TrackParams configure Track.
type TrackParams struct {
	Link LinkParams `json:"link"`

	MinLength int     `json:"min_length"`
	MinMass   float64 `json:"min_mass"`

	// Diameter is the detection diameter, used by SizeBoundDiameter.
	Diameter  int       `json:"diameter"`
	SizeBound SizeBound `json:"size_bound"`
	// MaxSize is used by SizeBoundFixed.
	MaxSize float64 `json:"max_size,omitempty"`
	// MaxEcc defaults to DefaultMaxEcc when zero.
	MaxEcc float64     `json:"max_ecc"`
	Order  FilterOrder `json:"order"`
}

// Thresholds resolves the size bound and returns the filter thresholds.
func (p TrackParams) Thresholds() (Thresholds, error) {
	th := Thresholds{
		MinLength: p.MinLength,
		MinMass:   p.MinMass,
		MaxEcc:    p.MaxEcc,
	}
	if th.MaxEcc == 0 {
		th.MaxEcc = DefaultMaxEcc
	}
	switch p.SizeBound {
	case SizeBoundDiameter:
		th.MaxSize = float64(p.Diameter)
	case SizeBoundMinMass:
		th.MaxSize = p.MinMass
	case SizeBoundFixed:
		th.MaxSize = p.MaxSize
		if th.MaxSize == 0 {
			th.MaxSize = DefaultMaxSize
		}
	case "":
		return Thresholds{}, ErrSizeBoundRequired
	default:
		return Thresholds{}, fmt.Errorf("unknown size bound %q", p.SizeBound)
	}
	if th.MaxSize <= 0 {
		return Thresholds{}, fmt.Errorf("size bound %s resolves to non-positive max size %g", p.SizeBound, th.MaxSize)
	}
	return th, nil
}
