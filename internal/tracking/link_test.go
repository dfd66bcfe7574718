package tracking

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
)

func feat(frame int, x, y float64) detection.Feature {
	return detection.Feature{Frame: frame, X: x, Y: y, Mass: 500, Size: 2, Ecc: 0.05}
}

// particleAt returns the particle id of the row at (frame, x).
func particleAt(t *testing.T, points []Point, frame int, x float64) int {
	t.Helper()
	for _, pt := range points {
		if pt.Frame == frame && pt.X == x {
			return pt.Particle
		}
	}
	t.Fatalf("no point at frame %d x %.1f", frame, x)
	return -1
}

func linkers() map[string]Linker {
	return map[string]Linker{
		MethodHungarian: HungarianLinker{},
		MethodGreedy:    GreedyLinker{},
	}
}

func TestLink_Empty(t *testing.T) {
	for name, l := range linkers() {
		if got := Link(nil, DefaultLinkParams(), l); len(got) != 0 {
			t.Errorf("%s: expected no points, got %d", name, len(got))
		}
	}
}

func TestLink_StaticParticle(t *testing.T) {
	var features []detection.Feature
	for f := 0; f < 5; f++ {
		features = append(features, feat(f, 10, 10))
	}
	points := Link(features, DefaultLinkParams(), nil)
	if len(points) != 5 {
		t.Fatalf("rows: got %d, want 5", len(points))
	}
	if n := CountParticles(points); n != 1 {
		t.Errorf("particles: got %d, want 1", n)
	}
}

func TestLink_TwoMovingParticles(t *testing.T) {
	var features []detection.Feature
	for f := 0; f < 4; f++ {
		features = append(features,
			feat(f, 10+3*float64(f), 10),
			feat(f, 50-3*float64(f), 40),
		)
	}
	for name, l := range linkers() {
		points := Link(features, DefaultLinkParams(), l)
		if n := CountParticles(points); n != 2 {
			t.Errorf("%s: particles: got %d, want 2", name, n)
		}
		a := particleAt(t, points, 0, 10)
		if got := particleAt(t, points, 3, 19); got != a {
			t.Errorf("%s: first particle changed id from %d to %d", name, a, got)
		}
	}
}

func TestLink_SearchRange(t *testing.T) {
	features := []detection.Feature{feat(0, 10, 10), feat(1, 30, 10)}
	p := LinkParams{SearchRange: 15, Memory: 0}
	if n := CountParticles(Link(features, p, nil)); n != 2 {
		t.Errorf("a 20 px jump beyond a 15 px range should split: got %d particles", n)
	}
	p.SearchRange = 20
	if n := CountParticles(Link(features, p, nil)); n != 1 {
		t.Errorf("a jump of exactly the search range should link: got %d particles", n)
	}
}

func TestLink_Memory(t *testing.T) {
	const memory = 5
	p := LinkParams{SearchRange: 15, Memory: memory}

	// Seen at frames 0 and 1, missing for exactly memory frames.
	within := []detection.Feature{feat(0, 20, 20), feat(1, 21, 20), feat(1+memory+1, 24, 21)}
	if n := CountParticles(Link(within, p, nil)); n != 1 {
		t.Errorf("gap of %d frames: got %d trajectories, want 1", memory, n)
	}

	beyond := []detection.Feature{feat(0, 20, 20), feat(1, 21, 20), feat(1+memory+2, 24, 21)}
	if n := CountParticles(Link(beyond, p, nil)); n != 2 {
		t.Errorf("gap of %d frames: got %d trajectories, want 2", memory+1, n)
	}
}

func TestLink_GlobalAssignment(t *testing.T) {
	// Greedy takes the closest pair (B0->A1) and strands A0; the optimal
	// assignment links both.
	features := []detection.Feature{
		feat(0, 0, 0),  // A0
		feat(0, 10, 0), // B0
		feat(1, 7, 0),  // A1, 3 from B0, 7 from A0
		feat(1, 20, 0), // B1, 10 from B0, 20 from A0
	}
	p := LinkParams{SearchRange: 10, Memory: 0}

	hung := Link(features, p, HungarianLinker{})
	if n := CountParticles(hung); n != 2 {
		t.Errorf("hungarian: got %d particles, want 2", n)
	}
	if particleAt(t, hung, 0, 0) != particleAt(t, hung, 1, 7) {
		t.Error("hungarian: A0 should continue to A1")
	}

	greedy := Link(features, p, GreedyLinker{})
	if n := CountParticles(greedy); n != 3 {
		t.Errorf("greedy: got %d particles, want 3", n)
	}
}

func TestLink_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var features []detection.Feature
	for f := 0; f < 20; f++ {
		for k := 0; k < 15; k++ {
			features = append(features, feat(f, rng.Float64()*200, rng.Float64()*200))
		}
	}
	shuffled := append([]detection.Feature(nil), features...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for name, l := range linkers() {
		first := Link(features, DefaultLinkParams(), l)
		second := Link(features, DefaultLinkParams(), l)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s: re-running changed the result (-first +second):\n%s", name, diff)
		}
		reordered := Link(shuffled, DefaultLinkParams(), l)
		if diff := cmp.Diff(first, reordered); diff != "" {
			t.Errorf("%s: input order changed the result (-first +reordered):\n%s", name, diff)
		}
	}
}

func TestLink_DoesNotModifyInput(t *testing.T) {
	features := []detection.Feature{feat(1, 5, 5), feat(0, 9, 9), feat(0, 1, 1)}
	before := append([]detection.Feature(nil), features...)
	Link(features, DefaultLinkParams(), nil)
	if diff := cmp.Diff(before, features); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestLink_EveryRowOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var features []detection.Feature
	for f := 0; f < 10; f++ {
		for k := 0; k < 8; k++ {
			features = append(features, feat(f, rng.Float64()*40, rng.Float64()*40))
		}
	}
	points := Link(features, DefaultLinkParams(), nil)
	if len(points) != len(features) {
		t.Fatalf("rows: got %d, want %d", len(points), len(features))
	}
	// A particle appears at most once per frame.
	seen := make(map[[2]int]bool)
	for _, pt := range points {
		key := [2]int{pt.Particle, pt.Frame}
		if seen[key] {
			t.Fatalf("particle %d appears twice in frame %d", pt.Particle, pt.Frame)
		}
		seen[key] = true
	}
}

func TestMinCostMatching(t *testing.T) {
	const forbidden = 1000
	tests := []struct {
		name string
		cost [][]float64
		want []int
	}{
		{"empty", nil, nil},
		{"no columns", [][]float64{{}, {}}, []int{-1, -1}},
		{"square", [][]float64{{4, 1}, {2, 8}}, []int{1, 0}},
		{"more rows", [][]float64{{1}, {2}, {0.5}}, []int{-1, -1, 0}},
		{"forbidden", [][]float64{{forbidden, forbidden}, {3, forbidden}}, []int{-1, 0}},
		{"more columns", [][]float64{{5, 2, 9}}, []int{1}},
		{"pairs before cost", [][]float64{{1, 2}, {2, forbidden}}, []int{1, 0}},
		{"reroute", [][]float64{{1, 2, forbidden}, {1, forbidden, forbidden}, {forbidden, 1, 3}}, []int{1, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := minCostMatching(tt.cost, forbidden)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("minCostMatching mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewLinker(t *testing.T) {
	for _, m := range []string{"", "hungarian", "Greedy"} {
		if _, err := NewLinker(m); err != nil {
			t.Errorf("NewLinker(%q): %v", m, err)
		}
	}
	if _, err := NewLinker("nearest"); err == nil {
		t.Error("NewLinker(nearest) should fail")
	}
}
