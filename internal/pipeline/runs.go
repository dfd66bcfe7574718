package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/explore"
	"github.com/sacha-escudier/marangoni-spreading/internal/render"
	"github.com/sacha-escudier/marangoni-spreading/internal/store"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// BatchReport summarises a batch detection.
type BatchReport struct {
	// RunID is empty when the pipeline has no store.
	RunID     string      `json:"run_id,omitempty"`
	Frames    int         `json:"frames"`
	Features  int         `json:"features"`
	PerFrame  map[int]int `json:"per_frame"`
	StackPath string      `json:"stack_path,omitempty"`

	Result *detection.BatchResult `json:"-"`
}

// Batch detects features on every frame in dir. When save is set an
// annotated stack is written to saveDir, which must then be non-empty. With
// a store, the features are persisted as a new run.
func (p *Pipeline) Batch(ctx context.Context, dir string, save bool, saveDir string) (*BatchReport, error) {
	if save && saveDir == "" {
		return nil, detection.ErrMissingOutputDir
	}
	seq, err := p.Frames(dir)
	if err != nil {
		return nil, err
	}
	params := p.cfg.DetectionParams()
	res, err := detection.Batch(ctx, seq, params, detection.BatchOptions{
		Save:     save,
		SaveDir:  saveDir,
		Renderer: p.cfg.Renderer(),
		Logger:   p.logger,
	})
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		Frames:    res.Frames,
		Features:  len(res.Features),
		PerFrame:  res.PerFrame,
		StackPath: res.StackPath,
		Result:    res,
	}
	if p.store == nil {
		return report, nil
	}

	framesDir := seq.Dir
	if abs, err := filepath.Abs(framesDir); err == nil {
		framesDir = abs
	}
	run, err := p.store.CreateRun(ctx, store.NewRun{
		FramesDir: framesDir,
		Frames:    res.Frames,
		Detection: params,
		Features:  res.Features,
	})
	if err != nil {
		return nil, err
	}
	report.RunID = run.ID
	p.logger.Info("run stored", zap.String("run", run.ID), zap.Int("features", report.Features))
	return report, nil
}

// TrackReport summarises linking and filtering of one run.
type TrackReport struct {
	RunID      string                     `json:"run_id,omitempty"`
	Counts     tracking.Counts            `json:"counts"`
	Thresholds tracking.Thresholds        `json:"thresholds"`
	Particles  []tracking.ParticleSummary `json:"particles"`
	// Drift is the cumulative collective displacement per frame of the
	// surviving trajectories.
	Drift []tracking.Drift `json:"drift"`

	Result *tracking.Result `json:"-"`
}

// TrackFeatures links and filters features without touching the store.
func (p *Pipeline) TrackFeatures(features []detection.Feature) (*TrackReport, error) {
	linker, err := tracking.NewLinker(p.cfg.Link.Method)
	if err != nil {
		return nil, err
	}
	res, err := tracking.Track(features, p.cfg.TrackParams(), linker, p.logger)
	if err != nil {
		return nil, err
	}
	return &TrackReport{
		Counts:     res.Counts,
		Thresholds: res.Applied,
		Particles:  tracking.Summarize(res.Filtered),
		Drift:      tracking.ComputeDrift(res.Filtered, 0),
		Result:     res,
	}, nil
}

// Track links the features of a stored run and saves the surviving
// trajectories. An empty runID selects the latest run.
func (p *Pipeline) Track(ctx context.Context, runID string) (*TrackReport, error) {
	run, err := p.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	features, err := p.store.Features(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	// trajectories must be filtered with the diameter and min mass the
	// features were detected with
	cfg := *p.cfg
	cfg.Detect.Diameter = run.Detection.Diameter
	cfg.Detect.MinMass = run.Detection.MinMass
	report, err := p.WithConfig(&cfg).TrackFeatures(features)
	if err != nil {
		return nil, err
	}
	report.RunID = run.ID

	// mass/size means cover every trajectory that passes the stub filter,
	// whatever the filter order
	res := report.Result
	means := tracking.Summarize(tracking.FilterStubs(res.Linked, res.Applied.MinLength))
	if err := p.store.SaveTrajectories(ctx, run.ID, res.Filtered, means, cfg.TrackParams()); err != nil {
		return nil, err
	}
	return report, nil
}

// ExportReport describes the files written by Export.
type ExportReport struct {
	RunID     string `json:"run_id"`
	StackPath string `json:"stack_path"`
	Pages     int    `json:"pages"`
	// MassSize plots every particle that passed the stub filter, including
	// those the attribute filter then rejected.
	MassSize  string `json:"mass_size"`
	Drift     string `json:"drift"`
	Particles int    `json:"particles"`
}

// Export renders the trajectories of a tracked run over its frames into
// outDir, or into the configured output directory. framesDir overrides the
// directory the run was detected in.
func (p *Pipeline) Export(ctx context.Context, runID, framesDir, outDir string) (*ExportReport, error) {
	if outDir == "" {
		outDir = p.cfg.Paths.OutputDir
	}
	if outDir == "" {
		return nil, render.ErrMissingOutputDir
	}
	run, err := p.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Tracked() {
		return nil, fmt.Errorf("%s: %w", run.ID, ErrNotTracked)
	}
	points, err := p.store.Trajectories(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	if framesDir == "" {
		framesDir = run.FramesDir
	}
	seq, err := p.Frames(framesDir)
	if err != nil {
		return nil, err
	}

	renderer := p.cfg.Renderer()
	if p.cfg.Render.Radius == 0 {
		renderer.Radius = float64(run.Detection.Diameter/2 + 2)
	}
	stack, err := renderer.ExportTrajectories(ctx, outDir, seq, points, p.logger)
	if err != nil {
		return nil, err
	}
	means, err := p.store.ParticleMeans(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	massSize := filepath.Join(outDir, explore.MassSizeFile)
	if err := explore.MassSize(means, massSize); err != nil {
		return nil, err
	}
	drift := filepath.Join(outDir, explore.DriftFile)
	if err := explore.DriftPlot(tracking.ComputeDrift(points, 0), drift); err != nil {
		return nil, err
	}
	return &ExportReport{
		RunID:     run.ID,
		StackPath: stack.Path,
		Pages:     stack.Pages,
		MassSize:  massSize,
		Drift:     drift,
		Particles: tracking.CountParticles(points),
	}, nil
}

func (p *Pipeline) resolveRun(ctx context.Context, runID string) (*store.Run, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	if runID == "" {
		run, err := p.store.LatestRun(ctx)
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, fmt.Errorf("no runs stored yet: %w", err)
		}
		return run, err
	}
	return p.store.Run(ctx, runID)
}
