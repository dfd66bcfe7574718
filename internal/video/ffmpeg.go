package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes through an ffmpeg subprocess writing PNG frames to
// a pipe.
type FFmpegDecoder struct {
	FFmpeg  string
	FFprobe string
}

// Open reads the frame count of src with ffprobe and starts ffmpeg.
func (d *FFmpegDecoder) Open(ctx context.Context, src string) (Stream, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, openError(src, err)
	}
	count, err := d.frameCount(ctx, src)
	if err != nil {
		return nil, openError(src, err)
	}

	ffmpeg := d.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-v", "error",
		"-i", src,
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, openError(src, err)
	}
	stream := &ffmpegStream{cmd: cmd, count: count}
	cmd.Stderr = &stream.stderr
	if err := cmd.Start(); err != nil {
		return nil, openError(src, err)
	}
	stream.out = bufio.NewReaderSize(stdout, 1<<20)
	return stream, nil
}

// frameCount asks ffprobe for the frame count of the first video
// stream. Containers that do not record nb_frames (mkv, webm) are counted
// by demuxing every packet. It fails when ffprobe cannot open src and
// returns -1 when neither field yields a count.
func (d *FFmpegDecoder) frameCount(ctx context.Context, src string) (int, error) {
	n, err := d.streamCount(ctx, src, "stream=nb_frames")
	if err != nil || n > 0 {
		return n, err
	}
	return d.streamCount(ctx, src, "stream=nb_read_packets", "-count_packets")
}

func (d *FFmpegDecoder) streamCount(ctx context.Context, src, entries string, extra ...string) (int, error) {
	ffprobe := d.FFprobe
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	args := []string{"-v", "error", "-select_streams", "v:0"}
	args = append(args, extra...)
	args = append(args,
		"-show_entries", entries,
		"-of", "default=noprint_wrappers=1:nokey=1",
		src,
	)
	cmd := exec.CommandContext(ctx, ffprobe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("ffprobe: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return 0, errors.New("ffprobe: no video stream")
	}
	n, err := strconv.Atoi(strings.Fields(text)[0])
	if err != nil || n <= 0 {
		return -1, nil
	}
	return n, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	out    *bufio.Reader
	stderr bytes.Buffer
	count  int
	done   bool
}

func (s *ffmpegStream) Next() (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	if _, err := s.out.Peek(1); err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read ffmpeg output: %w", err)
		}
		if err := s.cmd.Wait(); err != nil {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(s.stderr.String()))
		}
		return nil, io.EOF
	}
	img, err := png.Decode(s.out)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (s *ffmpegStream) Count() int { return s.count }

func (s *ffmpegStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
