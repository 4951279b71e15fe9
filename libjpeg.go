package jpegenc

import (
	"bytes"
	"context"

	"golang.org/x/exp/slices"

	"github.com/dlecorfec/jpegenc/internal/codec"
	"github.com/dlecorfec/jpegenc/internal/exif"
	"github.com/dlecorfec/jpegenc/internal/logger"
	"github.com/dlecorfec/jpegenc/internal/markers"
)

// encodeWithLibJpeg encodes one frame with the codec.
func encodeWithLibJpeg(ctx context.Context, image PackedImage, info BasicInfo, icc, exifData []byte, params Params) ([]byte, error) {
	if codec.BitsInSample != 8 {
		return nil, newError(ErrImplementationLimit, "only 8 bit samples are supported")
	}
	c := codec.NewCompressor()
	defer c.Destroy()
	c.Log = logger.Entry(ctx)
	c.MemDest()
	c.ImageWidth = image.XSize
	c.ImageHeight = image.YSize
	c.InputComponents = info.NumColorChannels
	c.InColorSpace = codec.RGB
	if info.NumColorChannels == 1 {
		c.InColorSpace = codec.Grayscale
	}
	if err := c.SetDefaults(); err != nil {
		return nil, codecError(err)
	}
	c.OptimizeCoding = params.OptimizeCoding
	if c.InputComponents == 3 {
		if err := setChromaSubsampling(c, params.ChromaSubsampling); err != nil {
			return nil, err
		}
	}
	if params.IsXYB {
		// Keep the XYB channels as they are.
		if err := c.SetColorspace(codec.RGB); err != nil {
			return nil, codecError(err)
		}
	}
	if err := c.SetQuality(params.Quality, true); err != nil {
		return nil, codecError(err)
	}
	if params.scanScript != nil {
		c.ScanInfo = params.scanScript
	} else if err := setProgression(c, params.ProgressiveID); err != nil {
		return nil, err
	}
	if err := c.StartCompress(true); err != nil {
		return nil, codecError(err)
	}
	if len(icc) > 0 {
		if err := markers.WriteICCProfile(c, icc); err != nil {
			return nil, codecError(err)
		}
	}
	if len(exifData) > 0 {
		exifData = bytes.Clone(exifData)
		exif.ResetOrientation(exifData)
		if err := markers.WriteExif(c, exifData); err != nil {
			return nil, codecError(err)
		}
	}
	if c.InputComponents > 3 || c.InputComponents < 1 {
		return nil, newError(ErrCodecFailure, "invalid numbers of components")
	}

	pixels := slices.Clone(image.Pixels)
	rowBytes := image.XSize * c.InputComponents
	row := make([][]byte, 1)
	for y := 0; y < image.YSize; y++ {
		off := y * image.Stride
		row[0] = pixels[off : off+rowBytes]
		if _, err := c.WriteScanlines(row); err != nil {
			return nil, codecError(err)
		}
	}
	if err := c.FinishCompress(); err != nil {
		return nil, codecError(err)
	}
	return bytes.Clone(c.Bytes()), nil
}
