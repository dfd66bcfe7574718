package detection

import (
	"image"
	"math"
	"sort"

	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
)

const (
	// maxRefineIterations bounds the centroid re-centering loop.
	maxRefineIterations = 10

	// refineShift is the offset, in pixels, beyond which the mask is moved
	// to the rounded centroid and the centroid recomputed.
	refineShift = 0.6
)

// Locator finds particle candidates in a single frame.
type Locator interface {
	Locate(img image.Image, frame int, p Params) ([]Feature, error)
}

// CentroidLocator is the default Locator: bandpass, local maxima, then
// iterative centroid refinement inside a circular mask.
type CentroidLocator struct{}

// peak is a candidate local maximum at integer coordinates.
type peak struct {
	x, y  int
	value float64
}

// Locate returns the features of img whose mass exceeds p.MinMass, ordered by
// (Y, X).
func (CentroidLocator) Locate(img image.Image, frame int, p Params) ([]Feature, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gray := imaging.ToGray(img)
	if p.Invert {
		gray = imaging.InvertGray(gray)
	}
	field := Bandpass(gray, p.Diameter, p.NoiseSize)

	radius := p.Radius()
	peaks := findPeaks(field, radius, p.separation(), p.threshold())

	features := make([]Feature, 0, len(peaks))
	for _, pk := range peaks {
		f, ok := refine(field, pk, radius)
		if !ok || f.Mass <= p.MinMass {
			continue
		}
		f.Frame = frame
		features = append(features, f)
	}
	SortFeatures(features)
	return features, nil
}

// Locate runs the default locator.
func Locate(img image.Image, frame int, p Params) ([]Feature, error) {
	return CentroidLocator{}.Locate(img, frame, p)
}

// findPeaks returns local maxima above threshold, at least separation apart,
// keeping the brighter peak of any close pair. Pixels closer than margin to
// the border are ignored.
func findPeaks(field [][]float64, margin int, separation, threshold float64) []peak {
	height := len(field)
	if height == 0 {
		return nil
	}
	width := len(field[0])
	reach := int(math.Ceil(separation / 2))

	var candidates []peak
	for y := margin; y < height-margin; y++ {
		for x := margin; x < width-margin; x++ {
			v := field[y][x]
			if v < threshold {
				continue
			}
			if isLocalMax(field, x, y, reach, width, height) {
				candidates = append(candidates, peak{x: x, y: y, value: v})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})

	minDist2 := separation * separation
	kept := make([]peak, 0, len(candidates))
	for _, c := range candidates {
		accept := true
		for _, k := range kept {
			dx := float64(c.x - k.x)
			dy := float64(c.y - k.y)
			if dx*dx+dy*dy < minDist2 {
				accept = false
				break
			}
		}
		if accept {
			kept = append(kept, c)
		}
	}
	return kept
}

func isLocalMax(field [][]float64, x, y, reach, width, height int) bool {
	v := field[y][x]
	r2 := reach * reach
	for dy := -reach; dy <= reach; dy++ {
		py := y + dy
		if py < 0 || py >= height {
			continue
		}
		for dx := -reach; dx <= reach; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			px := x + dx
			if px < 0 || px >= width {
				continue
			}
			if field[py][px] > v {
				return false
			}
		}
	}
	return true
}

// refine computes the masked centroid around pk, moving the mask while the
// centroid lies more than refineShift from its centre. It reports false when
// the mask would leave the image or holds no signal.
func refine(field [][]float64, pk peak, radius int) (Feature, bool) {
	height := len(field)
	width := len(field[0])
	cx, cy := pk.x, pk.y

	for i := 0; i < maxRefineIterations; i++ {
		if cx-radius < 0 || cy-radius < 0 || cx+radius >= width || cy+radius >= height {
			return Feature{}, false
		}
		m := moments(field, cx, cy, radius, 0, 0)
		if m.mass <= 0 {
			return Feature{}, false
		}
		offX, offY := m.sx/m.mass, m.sy/m.mass
		if math.Abs(offX) <= refineShift && math.Abs(offY) <= refineShift {
			break
		}
		nx := cx + int(math.Round(offX))
		ny := cy + int(math.Round(offY))
		if nx == cx && ny == cy {
			break
		}
		cx, cy = nx, ny
	}
	if cx-radius < 0 || cy-radius < 0 || cx+radius >= width || cy+radius >= height {
		return Feature{}, false
	}

	// the last iteration may have moved the mask, so the offsets are taken
	// again at its final position
	c := moments(field, cx, cy, radius, 0, 0)
	if c.mass <= 0 {
		return Feature{}, false
	}
	offX, offY := c.sx/c.mass, c.sy/c.mass
	m := moments(field, cx, cy, radius, offX, offY)
	if m.mass <= 0 {
		return Feature{}, false
	}
	ixx := m.sxx / m.mass
	iyy := m.syy / m.mass
	ixy := m.sxy / m.mass

	var ecc float64
	if trace := ixx + iyy; trace > 0 {
		ecc = math.Sqrt((ixx-iyy)*(ixx-iyy)+4*ixy*ixy) / trace
	}

	return Feature{
		X:      float64(cx) + offX,
		Y:      float64(cy) + offY,
		Mass:   m.mass,
		Size:   math.Sqrt(ixx + iyy),
		Ecc:    ecc,
		Signal: m.peak,
	}, true
}

type momentSums struct {
	mass, sx, sy, sxx, syy, sxy, peak float64
}

// moments sums the field inside the circular mask centred on (cx, cy).
// Second moments are taken about (cx+ox, cy+oy).
func moments(field [][]float64, cx, cy, radius int, ox, oy float64) momentSums {
	var m momentSums
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			v := field[cy+dy][cx+dx]
			if v == 0 {
				continue
			}
			fx := float64(dx) - ox
			fy := float64(dy) - oy
			m.mass += v
			m.sx += v * float64(dx)
			m.sy += v * float64(dy)
			m.sxx += v * fx * fx
			m.syy += v * fy * fy
			m.sxy += v * fx * fy
			if v > m.peak {
				m.peak = v
			}
		}
	}
	return m
}
