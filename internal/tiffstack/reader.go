package tiffstack

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/chai2010/tiff"
)

// Reader gives random access to the pages of a stack held in memory.
type Reader struct {
	r    *tiff.Reader
	size int64
}

// Info summarizes a stack for listings.
type Info struct {
	Path      string `json:"path"`
	Pages     int    `json:"pages"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Grayscale bool   `json:"grayscale"`
	SizeBytes int64  `json:"size_bytes"`
}

// Open reads the whole file at path and indexes its pages.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stack: %w", err)
	}
	if isEmptyStack(data) {
		return &Reader{size: int64(len(data))}, nil
	}
	r, err := tiff.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse stack: %w", err)
	}
	return &Reader{r: r, size: int64(len(data))}, nil
}

// isEmptyStack reports a little-endian header whose first IFD offset is
// zero, which is what Create followed by Close leaves behind.
func isEmptyStack(data []byte) bool {
	return len(data) == headerSize && data[0] == 'I' && data[1] == 'I' &&
		le.Uint16(data[2:]) == 42 && le.Uint32(data[firstIFDPointerAddr:]) == 0
}

// Stat opens path and describes its first page.
func Stat(path string) (*Info, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	info := &Info{Path: path, Pages: r.Len(), SizeBytes: r.size}
	if r.Len() == 0 {
		return info, nil
	}
	cfg, err := r.r.ImageConfig(0, 0)
	if err != nil {
		return nil, fmt.Errorf("page 0: %w", err)
	}
	info.Width, info.Height = cfg.Width, cfg.Height
	info.Grayscale = cfg.ColorModel == color.GrayModel || cfg.ColorModel == color.Gray16Model
	return info, nil
}

// Len returns the number of pages.
func (r *Reader) Len() int {
	if r.r == nil {
		return 0
	}
	return r.r.ImageNum()
}

// Page decodes page i. Stacks written by this package decode as *image.Gray
// or *image.RGBA.
func (r *Reader) Page(i int) (image.Image, error) {
	if i < 0 || i >= r.Len() {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, r.Len())
	}
	img, err := r.r.DecodeImage(i, 0)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i, err)
	}
	return img, nil
}
