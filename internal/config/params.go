package config

import (
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/render"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
	"github.com/sacha-escudier/marangoni-spreading/internal/video"
)

// DetectionParams returns the localization parameters.
func (c *Config) DetectionParams() detection.Params {
	return detection.Params{
		Diameter:   c.Detect.Diameter,
		MinMass:    c.Detect.MinMass,
		Invert:     c.Detect.Invert,
		NoiseSize:  c.Detect.NoiseSize,
		Separation: c.Detect.Separation,
		Threshold:  c.Detect.Threshold,
	}
}

// LinkParams returns the linking bounds.
func (c *Config) LinkParams() tracking.LinkParams {
	return tracking.LinkParams{
		SearchRange: c.Link.SearchRange,
		Memory:      c.Link.Memory,
	}
}

// TrackParams returns the link and filter settings used by tracking.Track.
// Validate must have succeeded; unparsable choices fall back to their zero
// value, which tracking rejects.
func (c *Config) TrackParams() tracking.TrackParams {
	bound, _ := tracking.ParseSizeBound(c.Filter.SizeBound)
	order, _ := tracking.ParseFilterOrder(c.Filter.Order)
	return tracking.TrackParams{
		Link:      c.LinkParams(),
		MinLength: c.Filter.MinLength,
		MinMass:   c.Detect.MinMass,
		Diameter:  c.Detect.Diameter,
		SizeBound: bound,
		MaxSize:   c.Filter.MaxSize,
		MaxEcc:    c.Filter.MaxEcc,
		Order:     order,
	}
}

// ExtractOptions returns the frame naming and colour options for extraction.
func (c *Config) ExtractOptions() video.Options {
	return video.Options{
		Prefix:    c.Extract.Prefix,
		Digits:    c.Extract.Digits,
		Ext:       c.Extract.Ext,
		Grayscale: c.Extract.Grayscale,
	}
}

// Renderer returns the overlay settings. A zero radius is derived from the
// detection diameter.
func (c *Config) Renderer() render.Renderer {
	radius := c.Render.Radius
	if radius == 0 && c.Detect.Diameter > 0 {
		radius = float64(c.Detect.Diameter/2 + 2)
	}
	return render.Renderer{
		FeatureColor: imaging.MustParseHexColor(c.Render.FeatureColor),
		Radius:       radius,
		Scale:        c.Render.Scale,
		LineWidth:    c.Render.LineWidth,
		Labels:       c.Render.Labels,
	}
}
