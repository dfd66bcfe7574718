package config

import (
	"errors"
	"fmt"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
	"github.com/sacha-escudier/marangoni-spreading/internal/video"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	c.normalizeChoices()
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.DetectionParams().Validate(); err != nil {
		return err
	}
	if err := c.validateLink(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be %q or %q", logging.FormatConsole, logging.FormatJSON)
	}
	return nil
}

func (c *Config) validateExtract() error {
	switch c.Extract.Decoder {
	case video.DecoderFFmpeg, video.DecoderGoCV:
	default:
		return fmt.Errorf("extract.decoder must be %q or %q, got %q", video.DecoderFFmpeg, video.DecoderGoCV, c.Extract.Decoder)
	}
	if c.Extract.Digits < 1 {
		return errors.New("extract.digits must be at least 1")
	}
	if c.Extract.Ext == "" {
		return errors.New("extract.ext must be set")
	}
	return nil
}

func (c *Config) validateLink() error {
	if _, err := tracking.NewLinker(c.Link.Method); err != nil {
		return fmt.Errorf("link.method: %w", err)
	}
	return c.LinkParams().Validate()
}

func (c *Config) validateFilter() error {
	if c.Filter.MinLength < 1 {
		return errors.New("filter.min_length must be at least 1")
	}
	if _, err := tracking.ParseSizeBound(c.Filter.SizeBound); err != nil {
		return fmt.Errorf("filter.size_bound: %w", err)
	}
	if c.Filter.MaxSize <= 0 {
		return errors.New("filter.max_size must be positive")
	}
	if c.Filter.MaxEcc <= 0 || c.Filter.MaxEcc > 1 {
		return errors.New("filter.max_ecc must be in (0, 1]")
	}
	if _, err := tracking.ParseFilterOrder(c.Filter.Order); err != nil {
		return fmt.Errorf("filter.order: %w", err)
	}
	return nil
}

func (c *Config) validateRender() error {
	if _, err := imaging.ParseHexColor(c.Render.FeatureColor); err != nil {
		return fmt.Errorf("render.feature_color: %w", err)
	}
	if c.Render.Scale <= 0 {
		return errors.New("render.scale must be positive")
	}
	if c.Render.Radius < 0 {
		return errors.New("render.radius must not be negative")
	}
	if c.Render.LineWidth < 1 {
		return errors.New("render.line_width must be at least 1")
	}
	return nil
}
