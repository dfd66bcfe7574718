package detection

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tiffstack"
)

// FeaturesStackName is the file written under BatchOptions.SaveDir.
const FeaturesStackName = "detected_features.tif"

// FeatureRenderer draws a frame with its features marked. It must not modify
// frame.
type FeatureRenderer interface {
	Features(frame image.Image, features []Feature) *image.RGBA
}

// BatchOptions control a batch detection run.
type BatchOptions struct {
	// Locator defaults to CentroidLocator.
	Locator Locator

	// Save appends one annotated page per frame to SaveDir/FeaturesStackName.
	Save    bool
	SaveDir string

	// Renderer draws the annotated pages. Defaults to red circles of radius
	// Diameter/2+2.
	Renderer FeatureRenderer

	Logger *zap.Logger
}

// BatchResult is the union of per-frame detections.
type BatchResult struct {
	// Features are grouped by ascending frame index, ordered by (Y, X)
	// within a frame.
	Features []Feature `json:"features"`

	// PerFrame counts features per frame index.
	PerFrame map[int]int `json:"per_frame"`

	// Frames is the number of frames processed.
	Frames int `json:"frames"`

	// StackPath is set when annotated frames were saved.
	StackPath string `json:"stack_path,omitempty"`
}

// Batch runs detection on every frame of seq in ascending index order.
//
// When opts.Save is set without opts.SaveDir, ErrMissingOutputDir is returned
// before any frame is read. A frame that cannot be decoded aborts the run;
// the partial stack, if any, is left on disk.
func Batch(ctx context.Context, seq *imaging.Sequence, p Params, opts BatchOptions) (*BatchResult, error) {
	if opts.Save && opts.SaveDir == "" {
		return nil, ErrMissingOutputDir
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)
	locator := opts.Locator
	if locator == nil {
		locator = CentroidLocator{}
	}

	result := &BatchResult{PerFrame: make(map[int]int)}

	var stack *tiffstack.Writer
	if opts.Save {
		if err := os.MkdirAll(opts.SaveDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		path := filepath.Join(opts.SaveDir, FeaturesStackName)
		w, err := tiffstack.Create(path)
		if err != nil {
			return nil, err
		}
		defer w.Close()
		stack = w
		result.StackPath = path
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = circleMarker{radius: float64(p.Radius() + 2)}
	}

	for pos := 0; pos < seq.Len(); pos++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame := seq.Frame(pos)
		img, err := seq.Image(pos)
		if err != nil {
			logger.Error("failed to load frame", zap.Int("frame", frame.Index), zap.Error(err))
			return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
		}

		located, err := locator.Locate(img, frame.Index, p)
		if err != nil {
			return nil, fmt.Errorf("locate frame %d: %w", frame.Index, err)
		}
		features := aboveMinMass(located, p.MinMass)
		result.Features = append(result.Features, features...)
		result.PerFrame[frame.Index] = len(features)
		result.Frames++
		logger.Debug("frame located", zap.Int("frame", frame.Index), zap.Int("features", len(features)))

		if stack != nil {
			if err := stack.Add(renderer.Features(img, features)); err != nil {
				return nil, fmt.Errorf("append frame %d to stack: %w", frame.Index, err)
			}
		}
	}

	if stack != nil {
		if err := stack.Close(); err != nil {
			return nil, err
		}
	}

	logger.Info("batch detection complete",
		zap.Int("frames", result.Frames),
		zap.Int("features", len(result.Features)),
		zap.Int("diameter", p.Diameter),
		zap.Float64("min_mass", p.MinMass),
	)
	return result, nil
}

// aboveMinMass keeps features brighter than minMass, whichever locator
// produced them.
func aboveMinMass(features []Feature, minMass float64) []Feature {
	out := features[:0:0]
	for _, f := range features {
		if f.Mass > minMass {
			out = append(out, f)
		}
	}
	return out
}

type circleMarker struct {
	radius float64
}

func (m circleMarker) Features(frame image.Image, features []Feature) *image.RGBA {
	canvas := imaging.Canvas(frame)
	red := color.RGBA{R: 255, A: 255}
	for _, f := range features {
		imaging.DrawCircle(canvas, f.X, f.Y, m.radius, 1, red)
	}
	return canvas
}
