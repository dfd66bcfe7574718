// Package tracking links per-frame detections into trajectories and filters
// them.
//
// The pipeline has three sequential steps over the whole detection set:
//
//  1. Link: assign a particle id to every detection so that one physical
//     particle keeps its id across frames. A detection may continue a track
//     last seen up to Memory frames earlier if it lies within SearchRange.
//     Ambiguities are resolved by a Linker; the default HungarianLinker
//     minimizes the total squared displacement of each frame transition.
//  2. FilterStubs: drop every particle present in fewer than MinLength
//     frames. Rows are removed, never truncated.
//  3. FilterAttributes: drop rows whose mass, size or eccentricity falls
//     outside the thresholds.
//
// Track runs all three and logs the particle count after each step.
//
// Filtering never edits a row and never modifies its input slice.
package tracking
