package tracking

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Drift is the cumulative displacement of the whole field of view at a frame,
// relative to the first frame.
type Drift struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ComputeDrift estimates collective motion from particles present in two
// consecutive frames. The mean step between frame k and k+1 is averaged over
// a centred window of 2*smoothing+1 steps, then cumulated. Frames that share
// no particle with their predecessor contribute a zero step.
func ComputeDrift(points []Point, smoothing int) []Drift {
	if len(points) == 0 {
		return nil
	}
	byFrame := make(map[int]map[int]Point)
	for _, pt := range points {
		m, ok := byFrame[pt.Frame]
		if !ok {
			m = make(map[int]Point)
			byFrame[pt.Frame] = m
		}
		m[pt.Particle] = pt
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	stepX := make([]float64, len(frames))
	stepY := make([]float64, len(frames))
	for k := 1; k < len(frames); k++ {
		if frames[k] != frames[k-1]+1 {
			continue
		}
		cur := byFrame[frames[k]]
		ids := make([]int, 0, len(cur))
		for id := range cur {
			ids = append(ids, id)
		}
		// fixed summation order keeps the means bit-for-bit reproducible
		sort.Ints(ids)
		var dxs, dys []float64
		for _, id := range ids {
			if prev, ok := byFrame[frames[k-1]][id]; ok {
				dxs = append(dxs, cur[id].X-prev.X)
				dys = append(dys, cur[id].Y-prev.Y)
			}
		}
		if len(dxs) > 0 {
			stepX[k] = stat.Mean(dxs, nil)
			stepY[k] = stat.Mean(dys, nil)
		}
	}
	if smoothing > 0 {
		stepX = rollingMean(stepX, smoothing)
		stepY = rollingMean(stepY, smoothing)
	}

	out := make([]Drift, len(frames))
	var cx, cy float64
	for k, f := range frames {
		if k > 0 {
			cx += stepX[k]
			cy += stepY[k]
		}
		out[k] = Drift{Frame: f, X: cx, Y: cy}
	}
	return out
}

// rollingMean averages v over a centred window, skipping the first element,
// which is always a zero step.
func rollingMean(v []float64, half int) []float64 {
	out := make([]float64, len(v))
	for k := 1; k < len(v); k++ {
		lo, hi := k-half, k+half
		if lo < 1 {
			lo = 1
		}
		if hi > len(v)-1 {
			hi = len(v) - 1
		}
		out[k] = stat.Mean(v[lo:hi+1], nil)
	}
	return out
}

// SubtractDrift returns copies of points with the drift at their frame
// removed. Frames missing from drift are left unchanged.
func SubtractDrift(points []Point, drift []Drift) []Point {
	at := make(map[int]Drift, len(drift))
	for _, d := range drift {
		at[d.Frame] = d
	}
	out := make([]Point, len(points))
	for i, pt := range points {
		if d, ok := at[pt.Frame]; ok {
			pt.X -= d.X
			pt.Y -= d.Y
		}
		out[i] = pt
	}
	return out
}
