package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultQuality is the default JPEG encoder quality (0..1).
const DefaultQuality = 0.7

// EncodeJPEG encodes a frame as JPEG at the given quality in [0,1].
func EncodeJPEG(frame *gocv.Mat, quality float64) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("cannot encode empty frame")
	}
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}

	params := []int{gocv.IMWriteJpegQuality, int(quality * 100)}
	buf, err := gocv.IMEncodeWithParams(".jpg", *frame, params)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// Copy out: the native buffer is freed on Close.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
