package tiffstack

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/tiff"
)

func gradientRGBA(w, h int, shift uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x*10) + shift, G: uint8(y * 20), B: shift, A: 255})
		}
	}
	return img
}

func gradientGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func writeStack(t *testing.T, pages ...image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.tif")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i, p := range pages {
		if err := w.Add(p); err != nil {
			t.Fatalf("Add page %d: %v", i, err)
		}
	}
	if w.Len() != len(pages) {
		t.Errorf("Len: got %d, want %d", w.Len(), len(pages))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestRoundTrip_RGB(t *testing.T) {
	pages := []*image.RGBA{gradientRGBA(7, 5, 0), gradientRGBA(7, 5, 50), gradientRGBA(7, 5, 100)}
	path := writeStack(t, pages[0], pages[1], pages[2])

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("pages: got %d, want 3", r.Len())
	}
	for i, want := range pages {
		got, err := r.Page(i)
		if err != nil {
			t.Fatalf("Page(%d): %v", i, err)
		}
		rgba, ok := got.(*image.RGBA)
		if !ok {
			t.Fatalf("Page(%d): got %T, want *image.RGBA", i, got)
		}
		if diff := cmp.Diff(want.Pix, rgba.Pix); diff != "" {
			t.Errorf("page %d pixels differ (-want +got):\n%s", i, diff)
		}
	}
}

func TestRoundTrip_Gray(t *testing.T) {
	// An odd pixel count exercises the word-alignment padding.
	want := gradientGray(5, 3)
	path := writeStack(t, want, want)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("pages: got %d, want 2", r.Len())
	}
	got, err := r.Page(1)
	if err != nil {
		t.Fatalf("Page(1): %v", err)
	}
	g, ok := got.(*image.Gray)
	if !ok {
		t.Fatalf("got %T, want *image.Gray", got)
	}
	if diff := cmp.Diff(want.Pix, g.Pix); diff != "" {
		t.Errorf("pixels differ (-want +got):\n%s", diff)
	}
}

func TestFirstPageDecodesWithXImage(t *testing.T) {
	want := gradientRGBA(9, 4, 30)
	path := writeStack(t, want, gradientRGBA(9, 4, 60))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("x/image/tiff cannot decode page 0: %v", err)
	}
	if img.Bounds().Dx() != 9 || img.Bounds().Dy() != 4 {
		t.Fatalf("bounds: got %v", img.Bounds())
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	wr, wg, wb, _ := want.At(3, 2).RGBA()
	if r != wr || g != wg || b != wb {
		t.Errorf("pixel (3,2): got %d,%d,%d want %d,%d,%d", r>>8, g>>8, b>>8, wr>>8, wg>>8, wb>>8)
	}
}

func TestMixedPageSizes(t *testing.T) {
	path := writeStack(t, gradientGray(4, 4), gradientRGBA(6, 2, 0))
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p1, err := r.Page(1)
	if err != nil {
		t.Fatalf("Page(1): %v", err)
	}
	if p1.Bounds().Dx() != 6 || p1.Bounds().Dy() != 2 {
		t.Errorf("page 1 bounds: got %v", p1.Bounds())
	}
}

func TestNonRGBAInputIsFlattened(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	path := writeStack(t, src)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	page, err := r.Page(0)
	if err != nil {
		t.Fatalf("Page(0): %v", err)
	}
	got := page.At(1, 1).(color.RGBA)
	if got.R != 10 || got.G != 20 || got.B != 30 {
		t.Errorf("pixel: got %+v", got)
	}
}

func TestEmptyStack(t *testing.T) {
	path := writeStack(t)
	info, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Pages != 0 {
		t.Errorf("pages: got %d, want 0", info.Pages)
	}
}

func TestStat(t *testing.T) {
	path := writeStack(t, gradientGray(8, 3), gradientGray(8, 3), gradientGray(8, 3))
	info, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	want := &Info{Path: path, Pages: 3, Width: 8, Height: 3, Grayscale: true, SizeBytes: info.SizeBytes}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Stat mismatch (-want +got):\n%s", diff)
	}
	if info.SizeBytes <= 3*8*3 {
		t.Errorf("SizeBytes too small: %d", info.SizeBytes)
	}
}

func TestAddAfterClose(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "s.tif"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Add(gradientGray(2, 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after Close: got %v, want ErrClosed", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")
	if err := os.WriteFile(path, []byte("not a tiff at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for a file without a tiff header")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.tif")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPageOutOfRange(t *testing.T) {
	r, err := Open(writeStack(t, gradientGray(2, 2)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Page(1); err == nil {
		t.Error("expected error for page 1 of 1")
	}
}
