package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeChoices()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.FramesDir, err = expandPath(c.Paths.FramesDir); err != nil {
		return fmt.Errorf("paths.frames_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StorePath, err = expandPath(c.Paths.StorePath); err != nil {
		return fmt.Errorf("paths.store_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeChoices() {
	c.Extract.Decoder = strings.ToLower(strings.TrimSpace(c.Extract.Decoder))
	c.Extract.Ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Extract.Ext)), ".")
	c.Link.Method = strings.ToLower(strings.TrimSpace(c.Link.Method))
	c.Filter.SizeBound = strings.ToLower(strings.TrimSpace(c.Filter.SizeBound))
	c.Filter.Order = strings.ToLower(strings.TrimSpace(c.Filter.Order))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}
