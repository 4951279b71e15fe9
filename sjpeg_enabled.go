//go:build !nosjpeg

package jpegenc

import (
	"bytes"
	"context"

	"github.com/dlecorfec/jpegenc/internal/exif"
	"github.com/dlecorfec/jpegenc/internal/logger"
	"github.com/dlecorfec/jpegenc/internal/sjpeg"
)

// SJpegSupported reports whether the sjpeg backend is built in.
const SJpegSupported = true

func sjpegYUVMode(name string) (sjpeg.YUVMode, error) {
	switch name {
	case "444":
		return sjpeg.YUV444, nil
	case "420":
		return sjpeg.YUV420, nil
	case "420sharp":
		return sjpeg.YUVSharp, nil
	}
	return 0, newError(ErrInvalidParameter, "sjpeg does not support chroma subsampling %q", name)
}

func encodeWithSJpeg(ctx context.Context, image PackedImage, info BasicInfo, icc, exifData []byte, params Params) ([]byte, error) {
	log := logger.Entry(ctx)
	param := sjpeg.NewEncoderParam(float64(params.Quality))
	param.Log = log
	param.Optimize = params.OptimizeCoding
	if len(icc) > 0 {
		param.Iccp = bytes.Clone(icc)
	}
	if len(exifData) > 0 {
		param.Exif = bytes.Clone(exifData)
		exif.ResetOrientation(param.Exif)
	}
	mode, err := sjpegYUVMode(params.ChromaSubsampling)
	if err != nil {
		return nil, err
	}
	param.YUVMode = mode
	if params.LibjpegQuality > 0 {
		size, err := referenceSize(ctx, image, info, icc, exifData, params)
		if err != nil {
			return nil, err
		}
		log.Debugf("jpegenc: sjpeg targets the %d bytes of libjpeg q=%d %s",
			size, params.LibjpegQuality, params.LibjpegChromaSubsampling)
		param.TargetMode = sjpeg.TargetSize
		param.TargetValue = size
		param.Passes = 20
		param.Tolerance = 0.1
	}
	rgb := packRGB(image, info.NumColorChannels)
	out, err := sjpeg.Encode(rgb, image.XSize, image.YSize, image.XSize*3, param)
	if err != nil {
		return nil, codecError(err)
	}
	return out, nil
}
