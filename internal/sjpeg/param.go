package sjpeg

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// YUVMode selects how RGB samples are turned into YCbCr planes.
type YUVMode int

const (
	// YUV420 averages chroma over 2x2 boxes.
	YUV420 YUVMode = iota + 1
	// YUVSharp refines the 4:2:0 planes so that the upsampled image stays
	// close to the RGB input.
	YUVSharp
	// YUV444 keeps chroma at full resolution.
	YUV444
)

func (m YUVMode) String() string {
	switch m {
	case YUV420:
		return "YUV420"
	case YUVSharp:
		return "SharpYUV"
	case YUV444:
		return "YUV444"
	}
	return fmt.Sprintf("YUVMode(%d)", int(m))
}

// TargetMode selects what the encoder aims for.
type TargetMode int

const (
	// TargetNone encodes once at Quality.
	TargetNone TargetMode = iota
	// TargetSize searches for the quality whose output is TargetValue
	// bytes long.
	TargetSize
)

// EncoderParam holds the settings of one Encode call.
type EncoderParam struct {
	// Quality is on the 0..100 scale; fractional values are honoured.
	Quality float64
	YUVMode YUVMode

	// Iccp and Exif are embedded verbatim when non-empty.
	Iccp []byte
	Exif []byte

	TargetMode  TargetMode
	TargetValue int
	// Passes bounds the number of encodes of a target search.
	Passes int
	// Tolerance is the accepted distance to TargetValue, in percent.
	Tolerance float64

	// Optimize computes optimal Huffman tables.
	Optimize bool

	// Log receives the search trace; nil means the standard logger.
	Log *logrus.Entry
}

// NewEncoderParam returns the default parameters for quality q.
func NewEncoderParam(q float64) EncoderParam {
	return EncoderParam{
		Quality:   q,
		YUVMode:   YUV420,
		Passes:    1,
		Tolerance: 1,
		Optimize:  true,
	}
}

func (p *EncoderParam) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
