package jpegenc

// ColorSpace is the color space of the samples of a PackedPixelFile.
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceRGB
	ColorSpaceGray
	// ColorSpaceXYB samples are stored in the RGB channels and must not be
	// converted to YCbCr.
	ColorSpaceXYB
)

type Primaries int

const (
	PrimariesCustom Primaries = iota
	PrimariesSRGB
	Primaries2100
	PrimariesP3
)

type WhitePoint int

const (
	WhitePointCustom WhitePoint = iota
	WhitePointD65
	WhitePointE
	WhitePointDCI
)

type TransferFunction int

const (
	TransferUnknown TransferFunction = iota
	TransferSRGB
	TransferLinear
	Transfer709
	TransferPQ
	TransferHLG
	TransferDCI
	TransferGamma
)

// ColorEncoding describes how the samples of an image map to colors.
type ColorEncoding struct {
	ColorSpace       ColorSpace
	Primaries        Primaries
	WhitePoint       WhitePoint
	TransferFunction TransferFunction
	// Gamma is used with TransferGamma.
	Gamma float64
}

// SRGBColorEncoding returns the canonical sRGB encoding, in its gray
// variant if gray is set.
func SRGBColorEncoding(gray bool) ColorEncoding {
	cs := ColorSpaceRGB
	if gray {
		cs = ColorSpaceGray
	}
	return ColorEncoding{
		ColorSpace:       cs,
		Primaries:        PrimariesSRGB,
		WhitePoint:       WhitePointD65,
		TransferFunction: TransferSRGB,
	}
}

// IsSRGB reports whether c is the canonical sRGB encoding, which decoders
// assume when a JPEG carries no ICC profile.
func (c ColorEncoding) IsSRGB() bool {
	return (c.ColorSpace == ColorSpaceRGB || c.ColorSpace == ColorSpaceGray) &&
		c.Primaries == PrimariesSRGB &&
		c.WhitePoint == WhitePointD65 &&
		c.TransferFunction == TransferSRGB
}
