package main

import (
	"github.com/spf13/cobra"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag, logLevel, logFormat string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "ptrack",
		Short:         "Particle tracking for Marangoni spreading videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.BoolVar(&jsonFlag, "json", false, "Print results as JSON instead of tables")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Log format (console or json)")
	ctx.bind(rootCmd, "log-level", func(cfg *config.Config) error {
		cfg.Logging.Level = logLevel
		return nil
	})
	ctx.bind(rootCmd, "log-format", func(cfg *config.Config) error {
		cfg.Logging.Format = logFormat
		return nil
	})
	ctx.stringFlag(rootCmd, true, "store", "", "Run store database path", func(cfg *config.Config, v string) error {
		return setPath(&cfg.Paths.StorePath, v)
	})

	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newExploreCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newTrackCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
