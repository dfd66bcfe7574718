package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
	"github.com/sacha-escudier/marangoni-spreading/internal/pipeline"
	"github.com/sacha-escudier/marangoni-spreading/internal/store"
)

// flagOverride applies a flag to the loaded configuration when the user set
// it explicitly.
type flagOverride struct {
	name  string
	apply func(*config.Config) error
}

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	overrides map[*cobra.Command][]flagOverride

	config       *config.Config
	configPath   string
	configExists bool
	logger       *zap.Logger
	store        *store.Store
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		overrides:  make(map[*cobra.Command][]flagOverride),
	}
}

// bind registers apply for the named flag of cmd.
func (c *commandContext) bind(cmd *cobra.Command, name string, apply func(*config.Config) error) {
	c.overrides[cmd] = append(c.overrides[cmd], flagOverride{name: name, apply: apply})
}

// loadConfig reads the configuration file and environment and applies the
// flags set on cmd or its parents. It does not validate.
func (c *commandContext) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.configPath = resolved
	c.configExists = exists

	flags := cmd.Flags()
	for cur := cmd; cur != nil; cur = cur.Parent() {
		for _, o := range c.overrides[cur] {
			if !flags.Changed(o.name) {
				continue
			}
			if err := o.apply(cfg); err != nil {
				return nil, fmt.Errorf("--%s: %w", o.name, err)
			}
		}
	}
	return cfg, nil
}

// ensureConfig loads and validates the configuration once and builds the
// logger from it.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	c.config = cfg
	c.logger = logger
	if c.configExists {
		logger.Debug("configuration loaded", zap.String("path", c.configPath))
	}
	return cfg, nil
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return logging.Fallback()
	}
	return c.logger
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// openStore opens the run store named by the configuration. The store stays
// open until close.
func (c *commandContext) openStore(ctx context.Context) (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if c.config == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	st, err := store.Open(ctx, c.config.Paths.StorePath)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

// pipeline returns a pipeline over the loaded configuration, with the run
// store when withStore is set.
func (c *commandContext) pipeline(cmd *cobra.Command, withStore bool) (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		Cache:  imaging.NewImageCache(),
		Logger: c.logger,
	}
	if withStore {
		st, err := c.openStore(cmd.Context())
		if err != nil {
			return nil, err
		}
		opts.Store = st
	}
	return pipeline.New(cfg, opts), nil
}

// withPipeline adapts fn into a RunE that builds the pipeline first and
// releases the store afterwards, whether fn fails or not.
func (c *commandContext) withPipeline(withStore bool, fn func(*cobra.Command, []string, *pipeline.Pipeline) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer c.close()
		p, err := c.pipeline(cmd, withStore)
		if err != nil {
			return err
		}
		return fn(cmd, args, p)
	}
}

// close releases the store and flushes the logger.
func (c *commandContext) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log().Warn("close store", zap.Error(err))
		}
		c.store = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// shouldSkipConfig reports whether cmd runs without a validated
// configuration: the bare root, cobra's help and completion commands, and
// commands annotated with skipConfigLoad.
func shouldSkipConfig(cmd *cobra.Command) bool {
	if !cmd.HasParent() {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
