package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/pipeline"
)

// dirArg returns the optional positional directory argument.
func dirArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Write every frame of a video into a directory",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = ctx.withPipeline(false, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		res, err := p.Extract(cmd.Context(), args[0], "")
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, res)
		}
		printFields(cmd.OutOrStdout(), [][2]string{
			{"Output", res.OutputDir},
			{"Frames", itoa(res.Frames)},
			{"Size", fmt.Sprintf("%dx%d", res.Width, res.Height)},
			{"Grayscale", yesNo(res.Grayscale)},
		})
		return nil
	})

	ctx.stringFlag(cmd, false, "output", "o", "Directory receiving the frames", func(cfg *config.Config, v string) error {
		return setPath(&cfg.Paths.FramesDir, v)
	})
	ctx.boolFlag(cmd, "grayscale", "Write single-channel frames", func(cfg *config.Config, v bool) {
		cfg.Extract.Grayscale = v
	})
	ctx.stringFlag(cmd, false, "decoder", "", "Video decoder (ffmpeg or gocv)", func(cfg *config.Config, v string) error {
		cfg.Extract.Decoder = v
		return nil
	})
	return cmd
}

func newExploreCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore [frames-dir]",
		Short: "Write detection diagnostics for one frame",
		Long: "Locate features on a single frame and write the raw frame, the annotated frame,\n" +
			"the mass histogram and the sub-pixel bias histogram, to help choose the diameter\n" +
			"and minimum mass before a batch run.",
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = ctx.withPipeline(false, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		rep, err := p.Explore(dirArg(args), "")
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, rep)
		}
		out := cmd.OutOrStdout()
		printFields(out, [][2]string{
			{"Frame", itoa(rep.Frame)},
			{"Features", itoa(rep.Count)},
			{"Mass min", ftoa(rep.Mass.Min, 1)},
			{"Mass q10", ftoa(rep.Mass.Q10, 1)},
			{"Mass median", ftoa(rep.Mass.Median, 1)},
			{"Mass q90", ftoa(rep.Mass.Q90, 1)},
			{"Mass max", ftoa(rep.Mass.Max, 1)},
		})
		for _, f := range rep.Files {
			fmt.Fprintf(out, "wrote %s\n", f)
		}
		return nil
	})

	ctx.addOutputFlag(cmd, "Directory receiving the diagnostics")
	ctx.addDetectFlags(cmd)
	ctx.intFlag(cmd, "frame", "Frame position to explore (negative counts from the end)", func(cfg *config.Config, v int) {
		cfg.Explore.FrameNumber = v
	})
	ctx.intFlag(cmd, "bins", "Histogram bins", func(cfg *config.Config, v int) {
		cfg.Explore.Bins = v
	})
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var save bool
	var saveDir string

	cmd := &cobra.Command{
		Use:   "batch [frames-dir]",
		Short: "Locate features on every frame and store them as a run",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		dir := strings.TrimSpace(saveDir)
		if dir == "" {
			dir = p.Config().Paths.OutputDir
		} else if err := setPath(&dir, dir); err != nil {
			return err
		}
		rep, err := p.Batch(cmd.Context(), dirArg(args), save, dir)
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, rep)
		}
		printBatch(cmd, rep)
		return nil
	})

	cmd.Flags().BoolVar(&save, "save", false, "Write the detections to "+detection.FeaturesStackName)
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "Directory for the annotated stack (default: output directory)")
	ctx.addOutputFlag(cmd, "Output directory")
	ctx.addDetectFlags(cmd)
	return cmd
}

func printBatch(cmd *cobra.Command, rep *pipeline.BatchReport) {
	out := cmd.OutOrStdout()
	fields := [][2]string{
		{"Run", rep.RunID},
		{"Frames", itoa(rep.Frames)},
		{"Features", itoa(rep.Features)},
	}
	if rep.Frames > 0 {
		lo, hi := -1, 0
		for _, n := range rep.PerFrame {
			if lo < 0 || n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		if lo < 0 {
			lo = 0
		}
		fields = append(fields,
			[2]string{"Per frame", fmt.Sprintf("%d-%d (mean %.1f)", lo, hi, float64(rep.Features)/float64(rep.Frames))})
	}
	if rep.StackPath != "" {
		fields = append(fields, [2]string{"Stack", rep.StackPath})
	}
	printFields(out, fields)
}

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "track [run-id]",
		Short: "Link the features of a run into filtered trajectories",
		Long: "Link the stored features of a run (the latest run by default) into trajectories,\n" +
			"drop short stubs and particles outside the mass, size and eccentricity bounds,\n" +
			"and store the surviving trajectories with the run.",
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		rep, err := p.Track(cmd.Context(), dirArg(args))
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, rep)
		}
		printTrack(cmd, rep, limit)
		return nil
	})

	cmd.Flags().IntVar(&limit, "limit", 20, "Particles listed in the summary table (0 lists all)")
	ctx.addTrackFlags(cmd)
	return cmd
}

func printTrack(cmd *cobra.Command, rep *pipeline.TrackReport, limit int) {
	out := cmd.OutOrStdout()
	fields := [][2]string{
		{"Run", rep.RunID},
		{"Particles linked", itoa(rep.Counts.Unfiltered)},
		{"After stub filter", itoa(rep.Counts.AfterStubs)},
		{"After attribute filter", itoa(rep.Counts.AfterAttributes)},
		{"Min length", itoa(rep.Thresholds.MinLength)},
		{"Min mass", ftoa(rep.Thresholds.MinMass, 1)},
		{"Max size", ftoa(rep.Thresholds.MaxSize, 2)},
		{"Max ecc", ftoa(rep.Thresholds.MaxEcc, 2)},
	}
	if n := len(rep.Drift); n > 0 {
		last := rep.Drift[n-1]
		fields = append(fields, [2]string{"Total drift", fmt.Sprintf("%.2f, %.2f", last.X, last.Y)})
	}
	printFields(out, fields)
	if len(rep.Particles) == 0 {
		return
	}

	particles := rep.Particles
	// longest trajectories first
	sorted := make([]int, len(particles))
	for i := range sorted {
		sorted[i] = i
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return particles[sorted[a]].Frames > particles[sorted[b]].Frames
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	rows := make([][]string, 0, len(sorted))
	for _, i := range sorted {
		s := particles[i]
		rows = append(rows, []string{
			itoa(s.Particle),
			itoa(s.Frames),
			fmt.Sprintf("%d-%d", s.FirstFrame, s.LastFrame),
			ftoa(s.X, 2),
			ftoa(s.Y, 2),
			ftoa(s.Mass, 1),
			ftoa(s.Size, 2),
			ftoa(s.Ecc, 3),
		})
	}
	printTable(out,
		[]string{"Particle", "Frames", "Span", "X", "Y", "Mass", "Size", "Ecc"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Render the trajectories of a run as an annotated TIFF stack",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = ctx.withPipeline(true, func(cmd *cobra.Command, args []string, p *pipeline.Pipeline) error {
		framesDir := ""
		if cmd.Flags().Changed("frames") {
			framesDir = p.Config().Paths.FramesDir
		}
		rep, err := p.Export(cmd.Context(), dirArg(args), framesDir, "")
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, rep)
		}
		printFields(cmd.OutOrStdout(), [][2]string{
			{"Run", rep.RunID},
			{"Particles", itoa(rep.Particles)},
			{"Pages", itoa(rep.Pages)},
			{"Stack", rep.StackPath},
			{"Mass/size plot", rep.MassSize},
			{"Drift plot", rep.Drift},
		})
		return nil
	})

	ctx.addOutputFlag(cmd, "Directory receiving the stack")
	ctx.addFramesFlag(cmd)
	ctx.floatFlag(cmd, "scale", "Upscaling factor applied to each frame", func(cfg *config.Config, v float64) {
		cfg.Render.Scale = v
	})
	ctx.floatFlag(cmd, "radius", "Marker radius in pixels (default: diameter/2+2)", func(cfg *config.Config, v float64) {
		cfg.Render.Radius = v
	})
	ctx.boolFlag(cmd, "labels", "Draw particle ids", func(cfg *config.Config, v bool) {
		cfg.Render.Labels = v
	})
	return cmd
}
