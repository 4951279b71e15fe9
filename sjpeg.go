package jpegenc

import (
	"context"
)

// referenceSize encodes the frame with libjpeg at the rate-matching quality
// and subsampling and returns the size of the result.
func referenceSize(ctx context.Context, image PackedImage, info BasicInfo, icc, exif []byte, params Params) (int, error) {
	ref := DefaultParams()
	ref.Quality = params.LibjpegQuality
	ref.ChromaSubsampling = params.LibjpegChromaSubsampling
	out, err := encodeWithLibJpeg(ctx, image, info, icc, exif, ref)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// packRGB copies the frame into tightly packed RGB rows, expanding gray
// samples to three channels.
func packRGB(image PackedImage, channels int) []byte {
	w, h := image.XSize, image.YSize
	rgb := make([]byte, 3*w*h)
	for y := 0; y < h; y++ {
		src := image.Pixels[y*image.Stride:]
		dst := rgb[3*w*y : 3*w*(y+1)]
		if channels == 3 {
			copy(dst, src[:3*w])
			continue
		}
		for x := 0; x < w; x++ {
			dst[3*x], dst[3*x+1], dst[3*x+2] = src[x], src[x], src[x]
		}
	}
	return rgb
}
