//go:build nosjpeg

package jpegenc

import (
	"context"
)

// SJpegSupported reports whether the sjpeg backend is built in.
const SJpegSupported = false

func encodeWithSJpeg(ctx context.Context, image PackedImage, info BasicInfo, icc, exifData []byte, params Params) ([]byte, error) {
	return nil, newError(ErrUnsupportedBuild, "built without sjpeg support")
}
