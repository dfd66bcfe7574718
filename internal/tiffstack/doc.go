// Package tiffstack writes and reads multi-page baseline TIFF files.
//
// Annotated frame sequences are exported as a single stack with one page per
// frame, the layout ImageJ and Fiji open as a time series. Pages are 8-bit,
// uncompressed, single-strip, little-endian, either grayscale or RGB.
//
// The writer streams pages to disk as they are added, so a stack of
// thousands of frames never sits in memory at once:
//
//	w, err := tiffstack.Create("out/detected_trajectories.tif")
//	for _, page := range pages {
//	    if err := w.Add(page); err != nil { ... }
//	}
//	err = w.Close()
//
// Pages are read back with github.com/chai2010/tiff, which walks the whole
// IFD chain. Page 0 is also readable by golang.org/x/image/tiff.
package tiffstack
