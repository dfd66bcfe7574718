package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sacha-escudier/marangoni-spreading/internal/pipeline"
)

const runTimeLayout = "2006-01-02 15:04:05"

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		runs, err := p.Store().Runs(cmd.Context())
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, runs)
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs stored")
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			particles := "-"
			if r.Tracked() {
				particles = itoa(r.Particles)
			}
			rows = append(rows, []string{
				shortID(r.ID),
				r.CreatedAt.Local().Format(runTimeLayout),
				itoa(r.Frames),
				itoa(r.Features),
				particles,
				itoa(r.Detection.Diameter),
				ftoa(r.Detection.MinMass, 1),
				r.FramesDir,
			})
		}
		printTable(out,
			[]string{"Run", "Created", "Frames", "Features", "Particles", "Diameter", "Min mass", "Frames dir"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
		)
		return nil
	})

	cmd.AddCommand(newRunsDeleteCommand(ctx))
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run with its features and trajectories",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		st := p.Store()
		run, err := st.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteRun(cmd.Context(), run.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ID)
		return nil
	})
	return cmd
}
