// Package imaging provides the frame and pixel plumbing shared by every
// pipeline stage.
//
// This package implements frame sequences (directory loading, index parsing,
// fixed-width naming), grayscale and polarity conversion, particle colours and
// the raster overlays used by the annotator. All operations work with standard
// Go image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Frame Sequences
//
// A Sequence is ordered by the index parsed from each file name, never by
// directory listing order:
//
//	seq, err := imaging.OpenSequence("frames/", "*.jpg")
//	for pos := 0; pos < seq.Len(); pos++ {
//	    img, err := seq.Image(pos)
//	    ...
//	}
//
// Frames written by the extractor are named with FrameName, so that
// lexicographic and numeric order coincide.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Sequence values are not
// mutated after construction and may be read concurrently.
//
// # Overlays
//
// Drawing helpers (DrawCircle, DrawLine, DrawLabel) draw on an *image.RGBA
// obtained from Canvas, which copies the source so frames are never modified.
package imaging
