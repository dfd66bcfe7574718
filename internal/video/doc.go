// Package video splits a video container into an ordered directory of still
// frames.
//
// Decoding is delegated to a Decoder. FFmpegDecoder, the default, streams PNG
// frames out of an ffmpeg subprocess and needs only the ffmpeg and ffprobe
// binaries on PATH. GoCVDecoder reads through OpenCV and is compiled in only
// with the gocv build tag:
//
//	go build -tags gocv ./cmd/ptrack
//
// Frames are written as <prefix><index>.<ext> with a zero-padded index
// starting at 0, so lexicographic and numeric order coincide.
package video
