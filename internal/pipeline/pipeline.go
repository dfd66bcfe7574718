// Package pipeline runs the tracking stages against a configuration and an
// optional run store. The CLI and the JSON-RPC server both drive the stages
// through a Pipeline so that defaults, persistence and logging behave the
// same way from either entry point.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/explore"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
	"github.com/sacha-escudier/marangoni-spreading/internal/store"
	"github.com/sacha-escudier/marangoni-spreading/internal/video"
)

var (
	// ErrNoStore is returned by stages that need persisted runs when the
	// pipeline was built without a store.
	ErrNoStore = errors.New("no run store configured")

	// ErrNotTracked is returned when trajectories are requested from a run
	// that was never tracked.
	ErrNotTracked = errors.New("run has no trajectories; run track first")

	// ErrMissingFramesDir is returned when no frame directory is given and
	// none is configured.
	ErrMissingFramesDir = errors.New("frames directory required")
)

// Pipeline binds a validated configuration to the resources shared across
// stages.
type Pipeline struct {
	cfg     *config.Config
	store   *store.Store
	decoder video.Decoder
	cache   *imaging.ImageCache
	logger  *zap.Logger
}

// Options carries optional collaborators. Nil fields get defaults: the
// decoder is built from the configuration on first use, and stages that need
// a store fail with ErrNoStore.
type Options struct {
	Store   *store.Store
	Decoder video.Decoder
	Cache   *imaging.ImageCache
	Logger  *zap.Logger
}

// New returns a pipeline for cfg. cfg must already be validated.
func New(cfg *config.Config, opts Options) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   opts.Store,
		decoder: opts.Decoder,
		cache:   opts.Cache,
		logger:  logging.OrNop(opts.Logger),
	}
}

// WithCache returns a copy of p that decodes single-frame stages through
// cache.
func (p *Pipeline) WithCache(cache *imaging.ImageCache) *Pipeline {
	cp := *p
	cp.cache = cache
	return &cp
}

// WithConfig returns a copy of p using cfg and the same resources.
func (p *Pipeline) WithConfig(cfg *config.Config) *Pipeline {
	cp := *p
	cp.cfg = cfg
	return &cp
}

// Config returns the configuration in use.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Store returns the run store, or nil.
func (p *Pipeline) Store() *store.Store { return p.store }

// Extract writes the frames of src into outDir, or into the configured
// frames directory when outDir is empty.
func (p *Pipeline) Extract(ctx context.Context, src, outDir string) (*video.Result, error) {
	if outDir == "" {
		outDir = p.cfg.Paths.FramesDir
	}
	if outDir == "" {
		return nil, ErrMissingFramesDir
	}
	decoder := p.decoder
	if decoder == nil {
		var err error
		decoder, err = video.NewDecoder(p.cfg.Extract.Decoder, p.cfg.Extract.FFmpegBinary, p.cfg.Extract.FFprobeBinary)
		if err != nil {
			return nil, err
		}
	}
	return video.NewExtractor(decoder, p.cfg.ExtractOptions(), p.logger).Extract(ctx, src, outDir)
}

// Frames opens the frame sequence in dir, or in the configured frames
// directory when dir is empty, using the configured pattern. The sequence
// decodes frames from disk on every access; whole-sequence stages use it so
// that no frame outlives its turn.
func (p *Pipeline) Frames(dir string) (*imaging.Sequence, error) {
	if dir == "" {
		dir = p.cfg.Paths.FramesDir
	}
	if dir == "" {
		return nil, ErrMissingFramesDir
	}
	return imaging.OpenSequence(dir, p.cfg.Detect.Pattern)
}

// cachedFrames is Frames with the pipeline cache attached. Callers release
// the sequence before the stage returns.
func (p *Pipeline) cachedFrames(dir string) (*imaging.Sequence, error) {
	seq, err := p.Frames(dir)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		seq = seq.WithCache(p.cache)
	}
	return seq, nil
}

// LocateReport is the outcome of detection on a single frame.
type LocateReport struct {
	Frame    int                 `json:"frame"`
	Count    int                 `json:"count"`
	Features []detection.Feature `json:"features"`
}

// Locate runs detection on one frame. frameNumber is a sequence position;
// negative values count from the end.
func (p *Pipeline) Locate(dir string, frameNumber int) (*LocateReport, error) {
	seq, err := p.cachedFrames(dir)
	if err != nil {
		return nil, err
	}
	defer seq.Release()
	pos, err := seq.Resolve(frameNumber)
	if err != nil {
		return nil, err
	}
	frame := seq.Frame(pos)
	img, err := seq.Image(pos)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}
	features, err := detection.Locate(img, frame.Index, p.cfg.DetectionParams())
	if err != nil {
		return nil, err
	}
	return &LocateReport{Frame: frame.Index, Count: len(features), Features: features}, nil
}

// Explore writes the parameter diagnostics for one frame into outDir, or
// into the configured output directory.
func (p *Pipeline) Explore(dir, outDir string) (*explore.Report, error) {
	seq, err := p.cachedFrames(dir)
	if err != nil {
		return nil, err
	}
	defer seq.Release()
	if outDir == "" {
		outDir = p.cfg.Paths.OutputDir
	}
	opts := explore.Options{
		FrameNumber: p.cfg.Explore.FrameNumber,
		Bins:        p.cfg.Explore.Bins,
		OutDir:      outDir,
		Params:      p.cfg.DetectionParams(),
		Renderer:    p.cfg.Renderer(),
		Logger:      p.logger,
	}
	return explore.Explore(seq, opts)
}
