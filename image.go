package jpegenc

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"

	"github.com/dlecorfec/jpegenc/internal/codec"
)

// DefaultQuality is the default quality encoding parameter.
const DefaultQuality = 75

// ProgressiveScan represents a single scan in a progressive JPEG sequence.
// Each scan encodes a specific subset of the DCT coefficients.
type ProgressiveScan struct {
	// Component specifies which color component to encode:
	// -1 = all components (DC scan), 0 = Y (luminance), 1 = Cb, 2 = Cr
	Component int

	// SpectralStart and SpectralEnd define the range of DCT coefficients (0-63)
	SpectralStart, SpectralEnd int

	// SuccessiveApproxHigh and SuccessiveApproxLow are the bit positions of
	// a successive approximation pass; both 0 for spectral selection only.
	SuccessiveApproxHigh, SuccessiveApproxLow int
}

// ScanScript defines a complete progressive scan sequence.
type ScanScript []ProgressiveScan

// CatalogScanScript returns catalog script id as a ScanScript.
func CatalogScanScript(id int) (ScanScript, error) {
	script, err := Script(id)
	if err != nil {
		return nil, err
	}
	out := make(ScanScript, len(script))
	for i, s := range script {
		comp := s.ComponentIndex[0]
		if s.CompsInScan > 1 {
			comp = -1
		}
		out[i] = ProgressiveScan{
			Component:            comp,
			SpectralStart:        s.Ss,
			SpectralEnd:          s.Se,
			SuccessiveApproxHigh: s.Ah,
			SuccessiveApproxLow:  s.Al,
		}
	}
	return out, nil
}

// scanInfo converts the script for an image of nComponent components.
// Ordering and successive approximation rules are checked by the codec.
func (script ScanScript) scanInfo(nComponent int) ([]codec.ScanInfo, error) {
	if len(script) == 0 {
		return nil, newError(ErrInvalidParameter, "scan script cannot be empty")
	}
	out := make([]codec.ScanInfo, 0, len(script))
	for i, scan := range script {
		if scan.Component < -1 || scan.Component >= nComponent {
			return nil, newError(ErrInvalidParameter, "scan %d has invalid component %d (must be -1 to %d)", i, scan.Component, nComponent-1)
		}
		if scan.Component == -1 && scan.SpectralStart != 0 {
			return nil, newError(ErrInvalidParameter, "AC scan %d cannot have component -1 (interleaved AC not allowed)", i)
		}
		s := codec.ScanInfo{
			CompsInScan: 1,
			Ss:          scan.SpectralStart,
			Se:          scan.SpectralEnd,
			Ah:          scan.SuccessiveApproxHigh,
			Al:          scan.SuccessiveApproxLow,
		}
		s.ComponentIndex[0] = scan.Component
		if scan.Component == -1 {
			s.CompsInScan = nComponent
			for c := 0; c < nComponent; c++ {
				s.ComponentIndex[c] = c
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Options are the parameters of Encode.
// Quality ranges from 1 to 100 inclusive, higher is better.
type Options struct {
	Quality     int
	Progressive bool

	// ScanScript defines a custom progressive scan sequence.
	// If nil, the codec's default progression is used.
	// Only used when Progressive is true.
	ScanScript ScanScript

	// ChromaSubsampling is one of "444", "420", "422" and "440"; empty
	// means "420".
	ChromaSubsampling string

	// ICC and Exif are embedded when set.
	ICC  []byte
	Exif []byte
}

// FromImage copies m into a single-frame PackedPixelFile: gray images keep
// one channel, everything else becomes 8-bit RGB. Alpha is dropped.
func FromImage(m image.Image) (*PackedPixelFile, error) {
	b := m.Bounds()
	if b.Dx() >= 1<<16 || b.Dy() >= 1<<16 {
		return nil, newError(ErrInvalidParameter, "image is too large to encode")
	}
	if b.Empty() {
		return nil, newError(ErrInvalidPixelFormat, "image is empty")
	}
	channels := 3
	if _, ok := m.(*image.Gray); ok {
		channels = 1
	}
	format := PixelFormat{NumChannels: channels, DataType: TypeUint8}
	img := NewPackedImage(b.Dx(), b.Dy(), format)
	for y := 0; y < img.YSize; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < img.XSize; x++ {
			p := image.Pt(b.Min.X+x, b.Min.Y+y)
			switch m := m.(type) {
			case *image.Gray:
				row[x] = m.GrayAt(p.X, p.Y).Y
			case *image.YCbCr:
				c := m.YCbCrAt(p.X, p.Y)
				row[3*x], row[3*x+1], row[3*x+2] = color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
			case *image.RGBA:
				c := m.RGBAAt(p.X, p.Y)
				row[3*x], row[3*x+1], row[3*x+2] = c.R, c.G, c.B
			default:
				r, g, bb, _ := m.At(p.X, p.Y).RGBA()
				row[3*x], row[3*x+1], row[3*x+2] = uint8(r>>8), uint8(g>>8), uint8(bb>>8)
			}
		}
	}
	return &PackedPixelFile{
		Info: BasicInfo{
			XSize:            img.XSize,
			YSize:            img.YSize,
			NumColorChannels: channels,
			BitsPerSample:    8,
		},
		ColorEncoding: SRGBColorEncoding(channels == 1),
		Frames:        []PackedFrame{{Color: img}},
	}, nil
}

// Encode writes the Image m to w in JPEG format with the given options.
// Default parameters are used if a nil *[Options] is passed.
func Encode(w io.Writer, m image.Image, o *Options) error {
	ppf, err := FromImage(m)
	if err != nil {
		return err
	}
	params := DefaultParams()
	params.Quality = DefaultQuality
	params.ChromaSubsampling = "420"
	if o != nil {
		// Clip quality to [1, 100].
		params.Quality = max(1, min(o.Quality, 100))
		if o.ChromaSubsampling != "" {
			params.ChromaSubsampling = o.ChromaSubsampling
		}
		if o.Progressive {
			params.ProgressiveID = 0
			if o.ScanScript != nil {
				params.scanScript, err = o.ScanScript.scanInfo(ppf.Info.NumColorChannels)
				if err != nil {
					return err
				}
			}
		}
		ppf.ICC = o.ICC
		ppf.Metadata.Exif = o.Exif
	}
	frame := ppf.Frames[0].Color
	out, err := encodeWithLibJpeg(context.Background(), frame, ppf.Info, ppf.ICC, ppf.Metadata.Exif, params)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return errors.Wrap(err, "jpeg: write")
}
