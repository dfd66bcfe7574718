// Package detection locates particles in still frames.
//
// A particle is a small blob whose footprint is roughly Diameter pixels
// across. Particles in the experiments this package was built for are darker
// than the liquid surface around them, so frames are inverted before peak
// finding (DefaultInvert).
//
// # Algorithm Overview
//
// The default CentroidLocator follows the classic Crocker-Grier pipeline:
//
//  1. Grayscale and polarity: convert to luminance, invert when Params.Invert
//  2. Bandpass: Gaussian smoothing of radius NoiseSize minus a boxcar
//     background of width Diameter, clipped at zero
//  3. Peak finding: local maxima above Threshold, at least Separation apart,
//     away from the border by Diameter/2
//  4. Refinement: centroid inside a circular mask of radius Diameter/2,
//     re-centred while the offset exceeds 0.6 px
//  5. Characterization: mass (masked sum), size (radius of gyration) and
//     eccentricity (from second moments)
//
// Features whose mass is at or below MinMass are discarded.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Batches
//
// Batch applies a Locator to every frame of an imaging.Sequence and can append
// an annotated copy of each frame to a multi-page TIFF stack.
package detection
