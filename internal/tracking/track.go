package tracking

import (
	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
)

// Counts are the unique particle counts after each step.
type Counts struct {
	Unfiltered      int `json:"unfiltered"`
	AfterStubs      int `json:"after_stubs"`
	AfterAttributes int `json:"after_attributes"`
}

// Result holds the table after each step. Filtered is the final table
// whichever filter ran first.
type Result struct {
	Linked   []Point    `json:"-"`
	Stubbed  []Point    `json:"-"`
	Filtered []Point    `json:"filtered"`
	Counts   Counts     `json:"counts"`
	Applied  Thresholds `json:"thresholds"`
}

// Track links features, filters stubs and filters attributes, in the order
// given by p.Order. A nil linker means HungarianLinker; a nil logger
// discards the count diagnostics.
func Track(features []detection.Feature, p TrackParams, linker Linker, logger *zap.Logger) (*Result, error) {
	if err := p.Link.Validate(); err != nil {
		return nil, err
	}
	th, err := p.Thresholds()
	if err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	res := &Result{Applied: th}
	res.Linked = Link(features, p.Link, linker)
	res.Counts.Unfiltered = CountParticles(res.Linked)

	switch p.Order {
	case AttributesFirst:
		attrs := FilterAttributes(res.Linked, th)
		res.Counts.AfterAttributes = CountParticles(attrs)
		res.Stubbed = FilterStubs(attrs, th.MinLength)
		res.Counts.AfterStubs = CountParticles(res.Stubbed)
		res.Filtered = res.Stubbed
	default:
		res.Stubbed = FilterStubs(res.Linked, th.MinLength)
		res.Counts.AfterStubs = CountParticles(res.Stubbed)
		res.Filtered = FilterAttributes(res.Stubbed, th)
		res.Counts.AfterAttributes = CountParticles(res.Filtered)
	}

	logger.Info("trajectory counts",
		zap.Int("unfiltered", res.Counts.Unfiltered),
		zap.Int("after_stubs", res.Counts.AfterStubs),
		zap.Int("after_attributes", res.Counts.AfterAttributes),
		zap.Int("rows", len(res.Filtered)),
	)
	return res, nil
}
