package tiffstack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
)

// TIFF tag numbers used by baseline stacks.
const (
	tagNewSubfileType   = 254
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagPlanarConfig     = 284
	typeShort           = 3
	typeLong            = 4
	photometricBlack    = 1
	photometricRGB      = 2
	subfilePage         = 2
	headerSize          = 8
	ifdEntrySize        = 12
	maxFileSize         = 1<<32 - 1
	firstIFDPointerAddr = 4
)

var le = binary.LittleEndian

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("tiff stack writer is closed")

// Writer appends pages to a multi-page TIFF file.
type Writer struct {
	f      *os.File
	path   string
	pos    int64 // next free byte
	patch  int64 // where the next IFD offset is recorded
	pages  int
	closed bool
}

// Create truncates or creates path and writes the TIFF header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create stack: %w", err)
	}
	header := make([]byte, headerSize)
	header[0], header[1] = 'I', 'I'
	le.PutUint16(header[2:], 42)
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write stack header: %w", err)
	}
	return &Writer{f: f, path: path, pos: headerSize, patch: firstIFDPointerAddr}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Len returns the number of pages written so far.
func (w *Writer) Len() int { return w.pages }

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32
}

// Add appends img as the next page. Grayscale images (*image.Gray) are stored
// with one sample per pixel; everything else is flattened to 8-bit RGB.
func (w *Writer) Add(img image.Image) error {
	if w.closed {
		return ErrClosed
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("cannot add empty %dx%d page", width, height)
	}

	pixels, samples := pageBytes(img)
	dataOff := w.pos
	next := dataOff + int64(len(pixels))
	if next%2 == 1 {
		next++
	}

	bpsValue := uint32(8)
	var bpsArray []byte
	if samples == 3 {
		bpsArray = make([]byte, 6)
		for i := 0; i < 3; i++ {
			le.PutUint16(bpsArray[2*i:], 8)
		}
		bpsValue = uint32(next)
		next += int64(len(bpsArray))
	}

	photometric := uint32(photometricBlack)
	if samples == 3 {
		photometric = photometricRGB
	}
	entries := []ifdEntry{
		{tagNewSubfileType, typeLong, 1, subfilePage},
		{tagImageWidth, typeLong, 1, uint32(width)},
		{tagImageLength, typeLong, 1, uint32(height)},
		{tagBitsPerSample, typeShort, uint32(samples), bpsValue},
		{tagCompression, typeShort, 1, 1},
		{tagPhotometric, typeShort, 1, photometric},
		{tagStripOffsets, typeLong, 1, uint32(dataOff)},
		{tagSamplesPerPixel, typeShort, 1, uint32(samples)},
		{tagRowsPerStrip, typeLong, 1, uint32(height)},
		{tagStripByteCounts, typeLong, 1, uint32(len(pixels))},
		{tagPlanarConfig, typeShort, 1, 1},
	}
	ifdOff := next
	ifdSize := int64(2 + ifdEntrySize*len(entries) + 4)
	if ifdOff+ifdSize > maxFileSize {
		return fmt.Errorf("stack exceeds the 4 GiB TIFF limit at page %d", w.pages)
	}

	buf := make([]byte, ifdOff+ifdSize-dataOff)
	copy(buf, pixels)
	if bpsArray != nil {
		copy(buf[bpsValue-uint32(dataOff):], bpsArray)
	}
	ifd := buf[ifdOff-dataOff:]
	le.PutUint16(ifd, uint16(len(entries)))
	for i, e := range entries {
		p := ifd[2+i*ifdEntrySize:]
		le.PutUint16(p[0:], e.tag)
		le.PutUint16(p[2:], e.typ)
		le.PutUint32(p[4:], e.count)
		if e.typ == typeShort && e.count == 1 {
			le.PutUint16(p[8:], uint16(e.value))
		} else {
			le.PutUint32(p[8:], e.value)
		}
	}
	// The trailing next-IFD offset stays zero until another page is added.

	if _, err := w.f.WriteAt(buf, dataOff); err != nil {
		return fmt.Errorf("write page %d: %w", w.pages, err)
	}
	var ptr [4]byte
	le.PutUint32(ptr[:], uint32(ifdOff))
	if _, err := w.f.WriteAt(ptr[:], w.patch); err != nil {
		return fmt.Errorf("link page %d: %w", w.pages, err)
	}

	w.patch = ifdOff + 2 + int64(ifdEntrySize*len(entries))
	w.pos = ifdOff + ifdSize
	w.pages++
	return nil
}

// Close flushes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("sync stack: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close stack: %w", err)
	}
	return nil
}

// pageBytes returns the interleaved 8-bit samples of img and the number of
// samples per pixel.
func pageBytes(img image.Image) ([]byte, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		out := make([]byte, width*height)
		for y := 0; y < height; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out[y*width:(y+1)*width], g.Pix[off:off+width])
		}
		return out, 1
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		b = rgba.Bounds()
	}
	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := rgba.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < width; x++ {
			s := rgba.Pix[row+4*x : row+4*x+4]
			c := unpremultiply(color.RGBA{R: s[0], G: s[1], B: s[2], A: s[3]})
			d := out[(y*width+x)*3:]
			d[0], d[1], d[2] = c.R, c.G, c.B
		}
	}
	return out, 3
}

func unpremultiply(c color.RGBA) color.RGBA {
	if c.A == 0xff || c.A == 0 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
}
