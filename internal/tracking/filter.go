package tracking

import "sort"

// FilterStubs keeps only the rows of particles present in at least minLength
// distinct frames. Short trajectories are removed entirely, never truncated.
func FilterStubs(points []Point, minLength int) []Point {
	lengths := TrajectoryLengths(points)
	out := make([]Point, 0, len(points))
	for _, pt := range points {
		if lengths[pt.Particle] >= minLength {
			out = append(out, pt)
		}
	}
	return out
}

// FilterAttributes keeps rows with Mass > MinMass, Size < MaxSize and
// Ecc < MaxEcc.
func FilterAttributes(points []Point, th Thresholds) []Point {
	out := make([]Point, 0, len(points))
	for _, pt := range points {
		if pt.Mass > th.MinMass && pt.Size < th.MaxSize && pt.Ecc < th.MaxEcc {
			out = append(out, pt)
		}
	}
	return out
}

// TrajectoryLengths returns the number of distinct frames per particle.
func TrajectoryLengths(points []Point) map[int]int {
	frames := make(map[int]map[int]struct{})
	for _, pt := range points {
		set, ok := frames[pt.Particle]
		if !ok {
			set = make(map[int]struct{})
			frames[pt.Particle] = set
		}
		set[pt.Frame] = struct{}{}
	}
	lengths := make(map[int]int, len(frames))
	for id, set := range frames {
		lengths[id] = len(set)
	}
	return lengths
}

// Particles returns the sorted unique particle ids.
func Particles(points []Point) []int {
	seen := make(map[int]struct{})
	ids := make([]int, 0)
	for _, pt := range points {
		if _, ok := seen[pt.Particle]; ok {
			continue
		}
		seen[pt.Particle] = struct{}{}
		ids = append(ids, pt.Particle)
	}
	sort.Ints(ids)
	return ids
}

// CountParticles returns the number of unique particle ids.
func CountParticles(points []Point) int {
	return len(Particles(points))
}

// ByParticle groups rows per particle, each group in frame order.
func ByParticle(points []Point) map[int][]Point {
	groups := make(map[int][]Point)
	for _, pt := range points {
		groups[pt.Particle] = append(groups[pt.Particle], pt)
	}
	for id := range groups {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Frame < g[j].Frame })
	}
	return groups
}
