package imaging

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultFramePrefix and DefaultFrameDigits describe the file names written by
// the frame extractor: frame_0000.jpg, frame_0001.jpg, ...
const (
	DefaultFramePrefix = "frame_"
	DefaultFrameDigits = 4
	DefaultFrameExt    = "jpg"
)

// ErrNoFrames is returned when a frame index is requested from an empty sequence.
var ErrNoFrames = errors.New("no frames in sequence")

// Frame is one still image of a video, identified by its index in the sequence.
//
// Image is optional: when nil the pixels are decoded from Path on demand.
// Frames are never modified after they are produced.
type Frame struct {
	Index int
	Path  string
	Image image.Image
}

// FrameName returns the fixed-width file name for a frame index.
//
//	FrameName("frame_", 7, 4, "jpg") == "frame_0007.jpg"
func FrameName(prefix string, index, digits int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s%0*d.%s", prefix, digits, index, ext)
}

// PadWidth returns the number of digits needed so that every index below count
// sorts lexicographically in numeric order, never less than min.
func PadWidth(count, min int) int {
	if count <= 0 {
		return min
	}
	width := len(strconv.Itoa(count - 1))
	if width < min {
		return min
	}
	return width
}

// ParseFrameIndex extracts the trailing integer of a frame file name.
// "frame_0012.jpg" yields 12. The second return is false when the stem does
// not end in a digit.
func ParseFrameIndex(name string) (int, bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	end := len(stem)
	start := end
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(stem[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sequence is an ordered set of frames, ascending by index.
type Sequence struct {
	Dir    string
	frames []Frame
	cache  *ImageCache
}

// NewSequence builds a sequence from frames already in memory or on disk.
// Frames are sorted by index; the input slice is not modified.
func NewSequence(frames []Frame) *Sequence {
	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	return &Sequence{frames: sorted}
}

// OpenSequence globs dir for pattern (e.g. "*.jpg") and returns the matching
// frames ordered by the index parsed from each file name. Files whose names
// carry no index are ordered after indexed ones, by name, and numbered after
// the largest parsed index.
//
// An unreadable directory is an error; a directory with no matches is an
// empty sequence.
func OpenSequence(dir, pattern string) (*Sequence, error) {
	if pattern == "" {
		pattern = "*." + DefaultFrameExt
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	sort.Strings(matches)

	frames := make([]Frame, 0, len(matches))
	var unindexed []string
	maxIndex := -1
	for _, m := range matches {
		idx, ok := ParseFrameIndex(m)
		if !ok {
			unindexed = append(unindexed, m)
			continue
		}
		if idx > maxIndex {
			maxIndex = idx
		}
		frames = append(frames, Frame{Index: idx, Path: m})
	}
	for _, m := range unindexed {
		maxIndex++
		frames = append(frames, Frame{Index: maxIndex, Path: m})
	}

	seq := NewSequence(frames)
	seq.Dir = dir
	return seq, nil
}

// WithCache attaches an image cache used by Image.
func (s *Sequence) WithCache(cache *ImageCache) *Sequence {
	s.cache = cache
	return s
}

// Release evicts every frame of the sequence from the attached cache. It is
// a no-op without a cache.
func (s *Sequence) Release() {
	if s.cache == nil {
		return
	}
	for _, f := range s.frames {
		if f.Path != "" {
			s.cache.Evict(f.Path)
		}
	}
}

// Len returns the number of frames.
func (s *Sequence) Len() int {
	return len(s.frames)
}

// Frames returns a copy of the frame descriptors in index order.
func (s *Sequence) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Frame returns the descriptor at position pos.
func (s *Sequence) Frame(pos int) Frame {
	return s.frames[pos]
}

// Indices returns the frame indices in order.
func (s *Sequence) Indices() []int {
	out := make([]int, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Index
	}
	return out
}

// Image decodes (or returns the in-memory pixels of) the frame at position pos.
func (s *Sequence) Image(pos int) (image.Image, error) {
	if pos < 0 || pos >= len(s.frames) {
		return nil, fmt.Errorf("frame position %d out of range [0,%d)", pos, len(s.frames))
	}
	f := s.frames[pos]
	if f.Image != nil {
		return f.Image, nil
	}
	if s.cache != nil {
		return s.cache.Load(f.Path)
	}
	return LoadImage(f.Path)
}

// Resolve maps a frame number to a position. Negative numbers count from the
// end, so -1 is the last frame.
func (s *Sequence) Resolve(n int) (int, error) {
	if len(s.frames) == 0 {
		return 0, ErrNoFrames
	}
	pos := n
	if n < 0 {
		pos = len(s.frames) + n
	}
	if pos < 0 || pos >= len(s.frames) {
		return 0, fmt.Errorf("frame %d out of range for %d frames", n, len(s.frames))
	}
	return pos, nil
}

// Position returns the position of the frame with the given index.
func (s *Sequence) Position(index int) (int, bool) {
	i := sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Index >= index })
	if i < len(s.frames) && s.frames[i].Index == index {
		return i, true
	}
	return 0, false
}
