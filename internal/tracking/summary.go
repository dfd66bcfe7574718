package tracking

import (
	"gonum.org/v1/gonum/stat"
)

// ParticleSummary is the per-particle mean of a trajectory.
type ParticleSummary struct {
	Particle   int     `json:"particle"`
	Frames     int     `json:"frames"`
	FirstFrame int     `json:"first_frame"`
	LastFrame  int     `json:"last_frame"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Mass       float64 `json:"mass"`
	Size       float64 `json:"size"`
	Ecc        float64 `json:"ecc"`
}

// Summarize returns one summary per particle, ordered by particle id.
func Summarize(points []Point) []ParticleSummary {
	groups := ByParticle(points)
	ids := Particles(points)
	lengths := TrajectoryLengths(points)

	out := make([]ParticleSummary, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		xs := make([]float64, len(g))
		ys := make([]float64, len(g))
		mass := make([]float64, len(g))
		size := make([]float64, len(g))
		ecc := make([]float64, len(g))
		for i, pt := range g {
			xs[i], ys[i] = pt.X, pt.Y
			mass[i], size[i], ecc[i] = pt.Mass, pt.Size, pt.Ecc
		}
		out = append(out, ParticleSummary{
			Particle:   id,
			Frames:     lengths[id],
			FirstFrame: g[0].Frame,
			LastFrame:  g[len(g)-1].Frame,
			X:          stat.Mean(xs, nil),
			Y:          stat.Mean(ys, nil),
			Mass:       stat.Mean(mass, nil),
			Size:       stat.Mean(size, nil),
			Ecc:        stat.Mean(ecc, nil),
		})
	}
	return out
}
