package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
)

// fakeDecoder serves in-memory frames.
type fakeDecoder struct {
	frames  []image.Image
	count   int
	openErr error
	failAt  int // index whose Next fails; -1 for none
	stream  *fakeStream
}

func (d *fakeDecoder) Open(_ context.Context, _ string) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.stream = &fakeStream{d: d}
	return d.stream, nil
}

type fakeStream struct {
	d      *fakeDecoder
	pos    int
	closed bool
}

func (s *fakeStream) Next() (image.Image, error) {
	if s.d.failAt >= 0 && s.pos == s.d.failAt {
		return nil, errors.New("corrupt packet")
	}
	if s.pos >= len(s.d.frames) {
		return nil, io.EOF
	}
	img := s.d.frames[s.pos]
	s.pos++
	return img, nil
}

func (s *fakeStream) Count() int   { return s.d.count }
func (s *fakeStream) Close() error { s.closed = true; return nil }

func colourFrames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = uint8(40 * i)
			img.Pix[p+1] = 200
			img.Pix[p+2] = 30
			img.Pix[p+3] = 255
		}
		out[i] = img
	}
	return out
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestExtract_WritesEveryFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	dec := &fakeDecoder{frames: colourFrames(3), count: 3, failAt: -1}
	opts := DefaultOptions()
	opts.Ext = "png"

	res, err := NewExtractor(dec, opts, nil).Extract(context.Background(), "video.avi", dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Frames != 3 || len(res.Paths) != 3 {
		t.Fatalf("frames: got %d (%d paths), want 3", res.Frames, len(res.Paths))
	}
	want := []string{"frame_0000.png", "frame_0001.png", "frame_0002.png"}
	got := listDir(t, dir)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("files: got %v, want %v", got, want)
	}
	if !dec.stream.closed {
		t.Error("stream not closed")
	}

	img, err := imaging.LoadImage(res.Paths[2])
	if err != nil {
		t.Fatalf("load frame: %v", err)
	}
	if imaging.IsGray(img) {
		t.Error("colour extraction produced a single-channel frame")
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 80 {
		t.Errorf("frame 2 red channel: got %d, want 80", r>>8)
	}
}

func TestExtract_Grayscale(t *testing.T) {
	dir := t.TempDir()
	dec := &fakeDecoder{frames: colourFrames(2), count: -1, failAt: -1}
	opts := DefaultOptions()
	opts.Grayscale = true

	res, err := NewExtractor(dec, opts, nil).Extract(context.Background(), "video.avi", dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !res.Grayscale {
		t.Error("result should report grayscale")
	}
	for _, p := range res.Paths {
		img, err := imaging.LoadImage(p)
		if err != nil {
			t.Fatalf("load %s: %v", p, err)
		}
		if _, ok := img.(*image.Gray); !ok {
			t.Errorf("%s decoded as %T, want *image.Gray", filepath.Base(p), img)
		}
	}
}

func TestExtract_WidensPadding(t *testing.T) {
	dir := t.TempDir()
	frames := colourFrames(2)
	dec := &fakeDecoder{frames: frames, count: 12000, failAt: -1}
	opts := DefaultOptions()
	opts.Ext = "png"

	if _, err := NewExtractor(dec, opts, nil).Extract(context.Background(), "long.mp4", dir); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got := listDir(t, dir)
	if len(got) != 2 || got[0] != "frame_00000.png" {
		t.Errorf("files: got %v, want five-digit names", got)
	}
}

func TestExtract_UnknownCountRenumbers(t *testing.T) {
	dir := t.TempDir()
	dec := &fakeDecoder{frames: colourFrames(12), count: -1, failAt: -1}
	opts := DefaultOptions()
	opts.Ext = "png"
	opts.Digits = 1

	res, err := NewExtractor(dec, opts, nil).Extract(context.Background(), "clip.mkv", dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got := listDir(t, dir)
	if len(got) != 12 || got[0] != "frame_00.png" || got[11] != "frame_11.png" {
		t.Fatalf("files: got %v, want frame_00.png .. frame_11.png", got)
	}
	for i, p := range res.Paths {
		if filepath.Base(p) != got[i] {
			t.Errorf("Paths[%d]: got %s, want %s", i, filepath.Base(p), got[i])
		}
	}
	seq, err := imaging.OpenSequence(dir, "*.png")
	if err != nil {
		t.Fatalf("OpenSequence: %v", err)
	}
	for pos, f := range seq.Frames() {
		if f.Index != pos || filepath.Base(f.Path) != got[pos] {
			t.Errorf("position %d: got index %d at %s", pos, f.Index, filepath.Base(f.Path))
		}
	}
}

func TestExtract_OpenFailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	dec := &fakeDecoder{openErr: errors.New("moov atom not found"), failAt: -1}

	_, err := NewExtractor(dec, DefaultOptions(), nil).Extract(context.Background(), "broken.mp4", dir)
	if !errors.Is(err, ErrOpenSource) {
		t.Fatalf("expected ErrOpenSource, got %v", err)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("expected no frames, got %v", got)
	}
}

func TestExtract_MidStreamFailureKeepsPartialOutput(t *testing.T) {
	dir := t.TempDir()
	dec := &fakeDecoder{frames: colourFrames(4), count: 4, failAt: 2}
	opts := DefaultOptions()
	opts.Ext = "png"

	res, err := NewExtractor(dec, opts, nil).Extract(context.Background(), "video.avi", dir)
	if err == nil {
		t.Fatal("expected read error")
	}
	if res == nil || res.Frames != 2 {
		t.Fatalf("partial result: got %+v, want 2 frames", res)
	}
	if got := listDir(t, dir); len(got) != 2 {
		t.Errorf("files on disk: got %v, want 2", got)
	}
}

func TestExtract_EmptyVideo(t *testing.T) {
	dec := &fakeDecoder{count: 0, failAt: -1}
	res, err := NewExtractor(dec, DefaultOptions(), nil).Extract(context.Background(), "empty.avi", t.TempDir())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Frames != 0 {
		t.Errorf("frames: got %d, want 0", res.Frames)
	}
}

func TestFFmpegDecoder_MissingFile(t *testing.T) {
	dec := &FFmpegDecoder{}
	_, err := dec.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, ErrOpenSource) {
		t.Fatalf("expected ErrOpenSource, got %v", err)
	}
}

// fakeFFprobe writes a script that answers nb_frames with N/A and the packet
// count query with packets.
func fakeFFprobe(t *testing.T, packets string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for ffprobe")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncase \"$*\" in\n*nb_read_packets*) echo " + packets + " ;;\n*) echo N/A ;;\nesac\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffprobe: %v", err)
	}
	return path
}

func TestFrameCount_FallsBackToPackets(t *testing.T) {
	dec := &FFmpegDecoder{FFprobe: fakeFFprobe(t, "12000")}
	n, err := dec.frameCount(context.Background(), "clip.webm")
	if err != nil {
		t.Fatalf("frameCount: %v", err)
	}
	if n != 12000 {
		t.Errorf("count: got %d, want 12000", n)
	}

	dec = &FFmpegDecoder{FFprobe: fakeFFprobe(t, "N/A")}
	if n, err := dec.frameCount(context.Background(), "clip.webm"); err != nil || n != -1 {
		t.Errorf("no count at all: got (%d, %v), want (-1, nil)", n, err)
	}
}

func TestNewDecoder(t *testing.T) {
	d, err := NewDecoder("", "ffmpeg", "ffprobe")
	if err != nil {
		t.Fatalf("NewDecoder default: %v", err)
	}
	if _, ok := d.(*FFmpegDecoder); !ok {
		t.Errorf("default decoder: got %T", d)
	}
	if _, err := NewDecoder("vlc", "", ""); err == nil {
		t.Error("unknown decoder should fail")
	}
}

func TestRoundTripWithSequence(t *testing.T) {
	dir := t.TempDir()
	dec := &fakeDecoder{frames: colourFrames(3), count: 3, failAt: -1}
	if _, err := NewExtractor(dec, DefaultOptions(), nil).Extract(context.Background(), "v.avi", dir); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	seq, err := imaging.OpenSequence(dir, "*.jpg")
	if err != nil {
		t.Fatalf("OpenSequence: %v", err)
	}
	if fmt.Sprint(seq.Indices()) != "[0 1 2]" {
		t.Errorf("indices: got %v", seq.Indices())
	}
}
