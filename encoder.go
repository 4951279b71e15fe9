// Package jpegenc encodes decoded frames into JPEG bitstreams, embedding
// ICC profiles and Exif metadata, with a choice of chroma subsampling,
// quality, progressive scan script and backend.
package jpegenc

import (
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/dlecorfec/jpegenc/internal/logger"
)

// Encoder turns PackedPixelFiles into JPEG files according to its options.
// The options must not change while Encode runs.
type Encoder struct {
	options map[string]string
}

func NewEncoder() *Encoder {
	return &Encoder{options: map[string]string{}}
}

// SetOption sets an encoding option. See ParseOptions for the known names.
func (e *Encoder) SetOption(name, value string) {
	e.options[name] = value
}

// Options returns a copy of the options set so far.
func (e *Encoder) Options() map[string]string {
	return maps.Clone(e.options)
}

// AcceptedFormats lists the pixel formats Encode takes.
func (e *Encoder) AcceptedFormats() []PixelFormat {
	return AcceptedFormats()
}

// Pool bounds how many frames are encoded at once.
type Pool struct {
	workers int
}

// NewPool returns a pool running up to workers frames concurrently; a
// value below 1 means one.
func NewPool(workers int) *Pool {
	return &Pool{workers: max(workers, 1)}
}

// Encode produces one bitstream per frame of ppf. Frames are encoded in
// turn, or concurrently through pool when it is not nil. On error no
// bitstream is returned.
func (e *Encoder) Encode(ctx context.Context, ppf *PackedPixelFile, pool *Pool) (*EncodedImage, error) {
	if err := VerifyBasicInfo(ppf.Info); err != nil {
		return nil, err
	}
	backend, params, err := parseOptions(ctx, e.options)
	if err != nil {
		return nil, err
	}
	if ppf.Info.AlphaBits > 0 {
		return nil, newError(ErrInvalidPixelFormat, "alpha is not supported")
	}
	if params.Quality < 0 || params.Quality > 100 {
		return nil, newError(ErrInvalidParameter, "please specify a 0-100 JPEG quality")
	}
	if params.LibjpegQuality < 0 || params.LibjpegQuality > 100 {
		return nil, newError(ErrInvalidParameter, "please specify a 0-100 libjpeg quality")
	}
	params.IsXYB = ppf.ColorEncoding.ColorSpace == ColorSpaceXYB
	var icc []byte
	if !ppf.ColorEncoding.IsSRGB() {
		icc = ppf.ICC
	}
	log := logger.Entry(ctx).WithField("backend", backend)
	log.Debugf("jpegenc: encoding %d frames with %+v", len(ppf.Frames), params)

	bitstreams := make([][]byte, len(ppf.Frames))
	encodeFrame := func(ctx context.Context, i int) error {
		frame := ppf.Frames[i].Color
		if err := VerifyPackedImage(frame, ppf.Info); err != nil {
			return err
		}
		fctx := logger.WithLogEntry(ctx, log.WithField("frame", i))
		out, err := encodeImage(fctx, frame, ppf.Info, icc, ppf.Metadata.Exif, backend, params)
		if err != nil {
			return err
		}
		logger.Entry(fctx).Debugf("jpegenc: frame is %d bytes", len(out))
		bitstreams[i] = out
		return nil
	}

	if pool == nil {
		for i := range ppf.Frames {
			if err := encodeFrame(ctx, i); err != nil {
				return nil, err
			}
		}
		return &EncodedImage{Bitstreams: bitstreams}, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.workers)
	for i := range ppf.Frames {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return encodeFrame(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &EncodedImage{Bitstreams: bitstreams}, nil
}

// encodeImage dispatches one frame to the backend.
func encodeImage(ctx context.Context, image PackedImage, info BasicInfo, icc, exif []byte, backend Backend, params Params) ([]byte, error) {
	if image.Format.DataType != TypeUint8 {
		return nil, newError(ErrInvalidPixelFormat, "unsupported pixel data type %v", image.Format.DataType)
	}
	switch backend {
	case BackendLibJpeg:
		return encodeWithLibJpeg(ctx, image, info, icc, exif, params)
	case BackendSJpeg:
		return encodeWithSJpeg(ctx, image, info, icc, exif, params)
	}
	return nil, newError(ErrInvalidParameter, "tried to use an unknown JPEG encoder %v", backend)
}
