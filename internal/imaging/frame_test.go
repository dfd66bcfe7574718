package imaging

import (
	"sort"
	"testing"
)

func TestFrameName(t *testing.T) {
	tests := []struct {
		prefix string
		index  int
		digits int
		ext    string
		want   string
	}{
		{"frame_", 0, 4, "jpg", "frame_0000.jpg"},
		{"frame_", 7, 3, ".png", "frame_007.png"},
		{"f", 12345, 3, "tif", "f12345.tif"},
	}
	for _, tt := range tests {
		if got := FrameName(tt.prefix, tt.index, tt.digits, tt.ext); got != tt.want {
			t.Errorf("FrameName(%q, %d, %d, %q) = %q, want %q", tt.prefix, tt.index, tt.digits, tt.ext, got, tt.want)
		}
	}
}

func TestFrameName_LexicographicOrder(t *testing.T) {
	const count = 1200
	digits := PadWidth(count, 3)
	names := make([]string, count)
	for i := range names {
		names[i] = FrameName("frame_", i, digits, "jpg")
	}
	if !sort.StringsAreSorted(names) {
		t.Fatal("padded names should already be in lexicographic order")
	}
}

func TestPadWidth(t *testing.T) {
	tests := []struct {
		count, min, want int
	}{
		{0, 4, 4},
		{10, 3, 3},
		{1000, 3, 3},
		{1001, 3, 4},
		{100000, 4, 5},
	}
	for _, tt := range tests {
		if got := PadWidth(tt.count, tt.min); got != tt.want {
			t.Errorf("PadWidth(%d, %d) = %d, want %d", tt.count, tt.min, got, tt.want)
		}
	}
}

func TestParseFrameIndex(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"frame_0012.jpg", 12, true},
		{"/tmp/run/frame_000.png", 0, true},
		{"img42.tif", 42, true},
		{"cover.jpg", 0, false},
		{"frame_12a.jpg", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFrameIndex(tt.name)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseFrameIndex(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
