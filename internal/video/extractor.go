package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/logging"
)

// Options control frame naming and colour.
type Options struct {
	Prefix string
	// Digits is the minimum index width; it grows when the container reports
	// more frames than it can number.
	Digits int
	Ext    string
	// Grayscale writes single-channel frames.
	Grayscale bool
}

// DefaultOptions returns frame_0000.jpg naming in colour.
func DefaultOptions() Options {
	return Options{
		Prefix: imaging.DefaultFramePrefix,
		Digits: imaging.DefaultFrameDigits,
		Ext:    imaging.DefaultFrameExt,
	}
}

// Result describes the frames written by Extract.
type Result struct {
	OutputDir string   `json:"output_dir"`
	Frames    int      `json:"frames"`
	Paths     []string `json:"-"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Grayscale bool     `json:"grayscale"`
}

// Extractor writes every decodable frame of a video to a directory.
type Extractor struct {
	decoder Decoder
	opts    Options
	logger  *zap.Logger
}

// NewExtractor creates an extractor. Zero-valued options fall back to
// DefaultOptions field by field.
func NewExtractor(decoder Decoder, opts Options, logger *zap.Logger) *Extractor {
	def := DefaultOptions()
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.Digits <= 0 {
		opts.Digits = def.Digits
	}
	if opts.Ext == "" {
		opts.Ext = def.Ext
	}
	return &Extractor{decoder: decoder, opts: opts, logger: logging.OrNop(logger)}
}

// Extract decodes src and writes frame i to outDir as
// <prefix><i zero-padded>.<ext>, creating outDir if needed. When a stream
// outgrows the padding picked from its reported count, the frames already
// written are renamed to the wider width.
//
// If src cannot be opened the error wraps ErrOpenSource and no frame is
// written. A failure while reading or writing aborts the extraction; frames
// already written are left on disk and listed in the returned result.
func (e *Extractor) Extract(ctx context.Context, src, outDir string) (*Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	stream, err := e.decoder.Open(ctx, src)
	if err != nil {
		if !errors.Is(err, ErrOpenSource) {
			err = openError(src, err)
		}
		e.logger.Error("cannot open video source", zap.String("source", src), zap.Error(err))
		return nil, err
	}
	defer stream.Close()

	digits := imaging.PadWidth(stream.Count(), e.opts.Digits)
	res := &Result{OutputDir: outDir, Grayscale: e.opts.Grayscale}

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		img, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Error("frame read failed", zap.Int("frame", i), zap.Error(err))
			return res, fmt.Errorf("read frame %d: %w", i, err)
		}

		if w := imaging.PadWidth(i+1, digits); w > digits {
			if err := e.renumber(res, w); err != nil {
				return res, err
			}
			digits = w
		}

		var out image.Image = img
		if e.opts.Grayscale {
			out = imaging.ToGray(img)
		}
		if i == 0 {
			res.Width, res.Height = out.Bounds().Dx(), out.Bounds().Dy()
		}

		path := filepath.Join(outDir, imaging.FrameName(e.opts.Prefix, i, digits, e.opts.Ext))
		if err := imaging.Save(path, out); err != nil {
			e.logger.Error("frame write failed", zap.Int("frame", i), zap.Error(err))
			return res, err
		}
		res.Paths = append(res.Paths, path)
		res.Frames++
		e.logger.Debug("saved frame", zap.Int("frame", i), zap.String("path", path))
	}

	e.logger.Info("extraction complete",
		zap.Int("frames", res.Frames),
		zap.String("output_dir", outDir),
		zap.Bool("grayscale", e.opts.Grayscale),
	)
	return res, nil
}

// renumber renames the frames written so far to digits-wide indices, for
// streams that run past the width chosen from their reported count.
func (e *Extractor) renumber(res *Result, digits int) error {
	for i, old := range res.Paths {
		path := filepath.Join(res.OutputDir, imaging.FrameName(e.opts.Prefix, i, digits, e.opts.Ext))
		if err := os.Rename(old, path); err != nil {
			e.logger.Error("frame rename failed", zap.Int("frame", i), zap.Error(err))
			return fmt.Errorf("renumber frame %d: %w", i, err)
		}
		res.Paths[i] = path
	}
	e.logger.Info("frame names widened", zap.Int("digits", digits), zap.Int("frames", len(res.Paths)))
	return nil
}
