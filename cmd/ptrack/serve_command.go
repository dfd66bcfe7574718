package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/pipeline"
	"github.com/sacha-escudier/marangoni-spreading/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracking stages as JSON-RPC tools on stdin/stdout",
		Long: "Run an MCP server over stdio. Requests are read one per line from stdin and\n" +
			"responses written to stdout; logs go to stderr.",
		Args: cobra.NoArgs,
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		ctx.log().Info("serving",
			zap.String("version", Version),
			zap.String("store", p.Store().Path()),
		)
		return server.New(p, ctx.log(), Version).Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ptrack %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			return nil
		},
	}
}
