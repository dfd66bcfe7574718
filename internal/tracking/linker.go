package tracking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
)

// Linker method names accepted by NewLinker.
const (
	MethodHungarian = "hungarian"
	MethodGreedy    = "greedy"
)

// Track is an open trajectory: the last detection of a particle still
// eligible for linking.
type Track struct {
	Particle  int
	Last      detection.Feature
	LastFrame int
}

// Linker resolves one frame transition.
//
// Assign returns, for each feature of current, the index into open of the
// track it continues, or -1 to start a new particle. No index may be returned
// twice. A pair is only allowed when the displacement is at most searchRange
// and the track has been missing for at most memory frames.
type Linker interface {
	Assign(current []detection.Feature, open []Track, searchRange float64, memory int) []int
}

// NewLinker returns the Linker registered under method. An empty method is
// the Hungarian linker.
func NewLinker(method string) (Linker, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", MethodHungarian:
		return HungarianLinker{}, nil
	case MethodGreedy:
		return GreedyLinker{}, nil
	default:
		return nil, fmt.Errorf("unknown link method %q (want %s or %s)", method, MethodHungarian, MethodGreedy)
	}
}

// allowed reports the squared displacement between f and t, and whether the
// pair satisfies the range and memory bounds.
func allowed(f detection.Feature, t Track, searchRange float64, memory int) (float64, bool) {
	if gap := f.Frame - t.LastFrame - 1; gap < 0 || gap > memory {
		return 0, false
	}
	dx := f.X - t.Last.X
	dy := f.Y - t.Last.Y
	d2 := dx*dx + dy*dy
	return d2, d2 <= searchRange*searchRange
}

// HungarianLinker minimizes the total squared displacement over all feasible
// pairings of a frame transition, after maximizing the number of pairs.
type HungarianLinker struct{}

// Assign implements Linker.
func (HungarianLinker) Assign(current []detection.Feature, open []Track, searchRange float64, memory int) []int {
	if len(current) == 0 {
		return nil
	}
	dim := len(current)
	if len(open) > dim {
		dim = len(open)
	}
	forbidden := float64(dim)*searchRange*searchRange + 1

	cost := make([][]float64, len(current))
	for i, f := range current {
		cost[i] = make([]float64, len(open))
		for j, t := range open {
			if d2, ok := allowed(f, t, searchRange, memory); ok {
				cost[i][j] = d2
			} else {
				cost[i][j] = forbidden
			}
		}
	}
	return minCostMatching(cost, forbidden)
}

// GreedyLinker links the closest feasible pair first, then the next closest
// among the remaining features and tracks.
type GreedyLinker struct{}

// Assign implements Linker.
func (GreedyLinker) Assign(current []detection.Feature, open []Track, searchRange float64, memory int) []int {
	type pair struct {
		i, j int
		d2   float64
	}
	var pairs []pair
	for i, f := range current {
		for j, t := range open {
			if d2, ok := allowed(f, t, searchRange, memory); ok {
				pairs = append(pairs, pair{i, j, d2})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].d2 != pairs[b].d2 {
			return pairs[a].d2 < pairs[b].d2
		}
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})

	result := make([]int, len(current))
	for i := range result {
		result[i] = -1
	}
	taken := make([]bool, len(open))
	for _, p := range pairs {
		if result[p.i] >= 0 || taken[p.j] {
			continue
		}
		result[p.i] = p.j
		taken[p.j] = true
	}
	return result
}
