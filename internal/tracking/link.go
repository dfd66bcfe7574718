package tracking

import (
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
)

// Point is one trajectory row: a detection plus the particle it belongs to.
type Point struct {
	detection.Feature
	Particle int `json:"particle"`
}

// Link assigns a particle id to every feature.
//
// Frames are processed in ascending order and features within a frame in
// (Y, X) order. A feature that continues no open track starts a new particle;
// ids count up from 0 in creation order. A track missing for more than
// p.Memory frames is closed. The input slice is not modified, and identical
// input always yields identical output.
func Link(features []detection.Feature, p LinkParams, linker Linker) []Point {
	if linker == nil {
		linker = HungarianLinker{}
	}
	frames, groups := detection.GroupByFrame(features)

	points := make([]Point, 0, len(features))
	var open []Track
	nextID := 0

	for _, frame := range frames {
		current := append([]detection.Feature(nil), groups[frame]...)
		detection.SortFeatures(current)

		live := open[:0]
		for _, t := range open {
			if frame-t.LastFrame-1 <= p.Memory {
				live = append(live, t)
			}
		}
		open = live

		assign := linker.Assign(current, open, p.SearchRange, p.Memory)
		taken := make([]bool, len(open))
		var started []Track

		for i, f := range current {
			j := -1
			if i < len(assign) {
				j = assign[i]
			}
			if j >= 0 && j < len(open) && !taken[j] {
				taken[j] = true
				open[j].Last = f
				open[j].LastFrame = frame
				points = append(points, Point{Feature: f, Particle: open[j].Particle})
				continue
			}
			started = append(started, Track{Particle: nextID, Last: f, LastFrame: frame})
			points = append(points, Point{Feature: f, Particle: nextID})
			nextID++
		}
		open = append(open, started...)
	}
	return points
}
