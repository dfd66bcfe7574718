package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
)

func flagSet(cmd *cobra.Command, persistent bool) *pflag.FlagSet {
	if persistent {
		return cmd.PersistentFlags()
	}
	return cmd.Flags()
}

func (c *commandContext) stringFlag(cmd *cobra.Command, persistent bool, name, shorthand, usage string, apply func(*config.Config, string) error) {
	v := new(string)
	flagSet(cmd, persistent).StringVarP(v, name, shorthand, "", usage)
	c.bind(cmd, name, func(cfg *config.Config) error { return apply(cfg, *v) })
}

func (c *commandContext) intFlag(cmd *cobra.Command, name, usage string, apply func(*config.Config, int)) {
	v := new(int)
	cmd.Flags().IntVar(v, name, 0, usage)
	c.bind(cmd, name, func(cfg *config.Config) error {
		apply(cfg, *v)
		return nil
	})
}

func (c *commandContext) floatFlag(cmd *cobra.Command, name, usage string, apply func(*config.Config, float64)) {
	v := new(float64)
	cmd.Flags().Float64Var(v, name, 0, usage)
	c.bind(cmd, name, func(cfg *config.Config) error {
		apply(cfg, *v)
		return nil
	})
}

func (c *commandContext) boolFlag(cmd *cobra.Command, name, usage string, apply func(*config.Config, bool)) {
	v := new(bool)
	cmd.Flags().BoolVar(v, name, false, usage)
	c.bind(cmd, name, func(cfg *config.Config) error {
		apply(cfg, *v)
		return nil
	})
}

func setPath(dst *string, value string) error {
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return err
	}
	*dst = expanded
	return nil
}

func (c *commandContext) addFramesFlag(cmd *cobra.Command) {
	c.stringFlag(cmd, false, "frames", "f", "Frames directory", func(cfg *config.Config, v string) error {
		return setPath(&cfg.Paths.FramesDir, v)
	})
}

func (c *commandContext) addOutputFlag(cmd *cobra.Command, usage string) {
	c.stringFlag(cmd, false, "output", "o", usage, func(cfg *config.Config, v string) error {
		return setPath(&cfg.Paths.OutputDir, v)
	})
}

// addDetectFlags exposes the localization parameters.
func (c *commandContext) addDetectFlags(cmd *cobra.Command) {
	c.stringFlag(cmd, false, "pattern", "", "Glob selecting frame files", func(cfg *config.Config, v string) error {
		cfg.Detect.Pattern = v
		return nil
	})
	c.intFlag(cmd, "diameter", "Particle diameter in pixels (odd)", func(cfg *config.Config, v int) {
		cfg.Detect.Diameter = v
	})
	c.floatFlag(cmd, "min-mass", "Minimum integrated brightness of a feature", func(cfg *config.Config, v float64) {
		cfg.Detect.MinMass = v
	})
	c.boolFlag(cmd, "invert", "Particles are darker than the background", func(cfg *config.Config, v bool) {
		cfg.Detect.Invert = v
	})
}

// addTrackFlags exposes the linking and filtering parameters.
func (c *commandContext) addTrackFlags(cmd *cobra.Command) {
	c.stringFlag(cmd, false, "method", "", "Assignment method (hungarian or greedy)", func(cfg *config.Config, v string) error {
		cfg.Link.Method = v
		return nil
	})
	c.floatFlag(cmd, "search-range", "Maximum displacement between frames in pixels", func(cfg *config.Config, v float64) {
		cfg.Link.SearchRange = v
	})
	c.intFlag(cmd, "memory", "Frames a particle may vanish and keep its id", func(cfg *config.Config, v int) {
		cfg.Link.Memory = v
	})
	c.intFlag(cmd, "min-length", "Minimum trajectory length in frames", func(cfg *config.Config, v int) {
		cfg.Filter.MinLength = v
	})
	c.stringFlag(cmd, false, "size-bound", "", "Upper size limit: diameter, minmass or fixed", func(cfg *config.Config, v string) error {
		cfg.Filter.SizeBound = v
		return nil
	})
	c.floatFlag(cmd, "max-size", "Size limit used by --size-bound fixed", func(cfg *config.Config, v float64) {
		cfg.Filter.MaxSize = v
	})
	c.floatFlag(cmd, "max-ecc", "Maximum mean eccentricity", func(cfg *config.Config, v float64) {
		cfg.Filter.MaxEcc = v
	})
	c.stringFlag(cmd, false, "order", "", "Filter order: stubs-first or attributes-first", func(cfg *config.Config, v string) error {
		cfg.Filter.Order = v
		return nil
	})
}
