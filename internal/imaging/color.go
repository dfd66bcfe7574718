package imaging

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// goldenAngle spreads consecutive particle ids around the hue circle so that
// neighbouring ids never get similar colours.
const goldenAngle = 137.50776405

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// MustParseHexColor is ParseHexColor for package-level defaults; it falls back
// to opaque red on malformed input.
func MustParseHexColor(hex string) color.RGBA {
	c, err := ParseHexColor(hex)
	if err != nil {
		return color.RGBA{R: 255, A: 255}
	}
	return c
}

// ParticleColor returns a stable, saturated colour for a particle id.
//
// Hues follow the golden angle in HCL space so that ids created one after the
// other are visually distinct, and the same id always maps to the same colour
// across frames and runs.
func ParticleColor(id int) color.RGBA {
	hue := math.Mod(float64(id)*goldenAngle, 360)
	if hue < 0 {
		hue += 360
	}
	c := colorful.Hcl(hue, 0.6, 0.65).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
