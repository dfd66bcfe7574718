//go:build gocv

package video

import (
	"context"
	"errors"
	"image"
	"io"
	"os"

	"gocv.io/x/gocv"
)

// GoCVDecoder decodes through OpenCV's VideoCapture.
type GoCVDecoder struct{}

func newGoCVDecoder() (Decoder, error) {
	return GoCVDecoder{}, nil
}

// Open opens src with gocv.VideoCaptureFile.
func (GoCVDecoder) Open(_ context.Context, src string) (Stream, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, openError(src, err)
	}
	capture, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return nil, openError(src, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, openError(src, errors.New("capture not opened"))
	}
	count := int(capture.Get(gocv.VideoCaptureFrameCount))
	if count <= 0 {
		count = -1
	}
	return &gocvStream{capture: capture, frame: gocv.NewMat(), count: count}, nil
}

type gocvStream struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	count   int
	closed  bool
}

func (s *gocvStream) Next() (image.Image, error) {
	if s.closed {
		return nil, io.EOF
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, io.EOF
	}
	return s.frame.ToImage()
}

func (s *gocvStream) Count() int { return s.count }

func (s *gocvStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.frame.Close()
	return s.capture.Close()
}
