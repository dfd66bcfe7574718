package imaging

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		hex     string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 255, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.hex)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q): err = %v, wantErr %v", tt.hex, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.hex, got, tt.want)
		}
	}
}

func TestMustParseHexColor_Fallback(t *testing.T) {
	if got := MustParseHexColor("nope"); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("fallback: got %v, want opaque red", got)
	}
}

func TestParticleColor_StableAndDistinct(t *testing.T) {
	if ParticleColor(7) != ParticleColor(7) {
		t.Error("ParticleColor must be deterministic")
	}
	seen := make(map[color.RGBA]bool)
	for id := 0; id < 16; id++ {
		c := ParticleColor(id)
		if c.A != 255 {
			t.Errorf("particle %d colour is not opaque: %v", id, c)
		}
		if seen[c] {
			t.Errorf("particle %d repeats colour %v", id, c)
		}
		seen[c] = true
	}
	if ParticleColor(-3) == (color.RGBA{}) {
		t.Error("negative ids should still map to a colour")
	}
}
