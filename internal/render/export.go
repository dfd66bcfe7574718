package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
	"github.com/sacha-escudier/marangoni-spreading/internal/tiffstack"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// TrajectoriesStackName is the file written by ExportTrajectories.
const TrajectoriesStackName = "detected_trajectories.tif"

// ErrMissingOutputDir is returned when an export is requested without a
// directory. It is the same error detection.Batch returns.
var ErrMissingOutputDir = detection.ErrMissingOutputDir

// ExportResult describes a written stack.
type ExportResult struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

// ExportTrajectories writes one page per frame of seq, in index order, to
// dir/detected_trajectories.tif. Each page shows the cumulative trajectories
// up to that frame and circles the detections in it.
//
// An empty dir returns ErrMissingOutputDir before any file is created. A
// frame that fails to load aborts the export and leaves a partial stack.
func (r Renderer) ExportTrajectories(ctx context.Context, dir string, seq *imaging.Sequence, points []tracking.Point, logger *zap.Logger) (*ExportResult, error) {
	if dir == "" {
		return nil, ErrMissingOutputDir
	}
	logger = logging.OrNop(logger)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, TrajectoriesStackName)
	stack, err := tiffstack.Create(path)
	if err != nil {
		return nil, err
	}
	defer stack.Close()

	set := newTrajectorySet(points)
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
		if err := stack.Add(r.drawTrajectories(img, set, frame.Index)); err != nil {
			return nil, fmt.Errorf("append frame %d: %w", frame.Index, err)
		}
		logger.Debug("rendered frame", zap.Int("frame", frame.Index))
	}
	if err := stack.Close(); err != nil {
		return nil, err
	}

	res := &ExportResult{Path: path, Pages: stack.Len()}
	logger.Info("trajectory stack written",
		zap.String("path", path),
		zap.Int("pages", res.Pages),
		zap.Int("particles", len(set.ids)),
	)
	return res, nil
}
