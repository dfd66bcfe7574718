package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Decoder names accepted by NewDecoder.
const (
	DecoderFFmpeg = "ffmpeg"
	DecoderGoCV   = "gocv"
)

var (
	// ErrOpenSource is returned when a video cannot be opened. Nothing has
	// been written when it is returned.
	ErrOpenSource = errors.New("cannot open video source")

	// ErrDecoderUnavailable is returned for decoders not compiled into the
	// binary.
	ErrDecoderUnavailable = errors.New("video decoder not available in this build")
)

// Decoder opens video sources.
type Decoder interface {
	// Open starts decoding src. Failures wrap ErrOpenSource.
	Open(ctx context.Context, src string) (Stream, error)
}

// Stream yields decoded frames in presentation order.
type Stream interface {
	// Next returns the next frame, or io.EOF after the last one.
	Next() (image.Image, error)

	// Count is the number of frames reported by the container, or -1 when
	// unknown.
	Count() int

	Close() error
}

// NewDecoder returns the decoder registered under name. ffmpeg and ffprobe
// are the binaries used by the ffmpeg decoder.
func NewDecoder(name, ffmpeg, ffprobe string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DecoderFFmpeg:
		return &FFmpegDecoder{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
	case DecoderGoCV:
		return newGoCVDecoder()
	default:
		return nil, fmt.Errorf("unknown decoder %q (want %s or %s)", name, DecoderFFmpeg, DecoderGoCV)
	}
}

func openError(src string, err error) error {
	return fmt.Errorf("%w %s: %v", ErrOpenSource, src, err)
}
