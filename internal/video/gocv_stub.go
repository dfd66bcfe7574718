//go:build !gocv

package video

func newGoCVDecoder() (Decoder, error) {
	return nil, ErrDecoderUnavailable
}
