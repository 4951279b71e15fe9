// Package codec implements a libjpeg-style JPEG compressor in pure Go.
//
// A Compressor is configured through exported fields and parameter setters
// (SetDefaults, SetColorspace, SetQuality, SimpleProgression, ScanInfo),
// receives application markers between StartCompress and the first
// scanline, buffers the image rows and produces the complete bitstream in
// FinishCompress. Sequential and progressive (spectral selection and
// successive approximation) modes are supported, with either the standard
// Huffman tables or optimal tables computed per scan.
package codec

// BitsInSample is the sample precision of the compressor.
const BitsInSample = 8

const (
	blockSize = 64 // A DCT block is 8x8.

	// MaxComponents is the largest number of color components in a frame.
	MaxComponents = 4
	// MaxCompsInScan is the largest number of components in one scan.
	MaxCompsInScan = 4
	// NumQuantTbls and NumHuffTbls are the number of table slots.
	NumQuantTbls = 4
	NumHuffTbls  = 4

	maxSampFactor   = 4
	maxBlocksInMCU  = 10
	maxAhAl         = 10
	maxMarkerLength = 65533
)

// Marker codes.
const (
	sof0Marker = 0xc0 // Start Of Frame (Baseline Sequential).
	sof1Marker = 0xc1 // Start Of Frame (Extended Sequential).
	sof2Marker = 0xc2 // Start Of Frame (Progressive).
	dhtMarker  = 0xc4 // Define Huffman Table.
	soiMarker  = 0xd8 // Start Of Image.
	eoiMarker  = 0xd9 // End Of Image.
	sosMarker  = 0xda // Start Of Scan.
	dqtMarker  = 0xdb // Define Quantization Table.

	// APP0 is the first application marker; APPn is APP0+n.
	APP0 = 0xe0
	// APP14 carries the Adobe color transform flag.
	APP14 = 0xee
)

// unzig maps from the zig-zag ordering to the natural ordering. For example,
// unzig[3] is the column and row of the fourth element in zig-zag order. The
// value is 16, which means first column (16%8 == 0) and third row (16/8 == 2).
var unzig = [blockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// block holds 64 DCT inputs or outputs in natural order.
type block [blockSize]int32

// coefBlock holds the quantized coefficients of a block in zig-zag order.
type coefBlock [blockSize]int16

// ColorSpace identifies the color space of the input samples or of the
// components stored in the JPEG file.
type ColorSpace int

const (
	Unknown ColorSpace = iota
	Grayscale
	RGB
	YCbCr
)

func (cs ColorSpace) String() string {
	switch cs {
	case Grayscale:
		return "grayscale"
	case RGB:
		return "rgb"
	case YCbCr:
		return "ycbcr"
	}
	return "unknown"
}

// ComponentInfo describes one component of the frame.
type ComponentInfo struct {
	// ID is the component identifier written to SOF and SOS.
	ID int
	// HSampFactor and VSampFactor are the sampling factors (1..4).
	HSampFactor, VSampFactor int
	// QuantTblNo, DCTblNo and ACTblNo select the table slots.
	QuantTblNo       int
	DCTblNo, ACTblNo int

	// Geometry computed by StartCompress.
	widthInBlocks, heightInBlocks       int
	downsampledWidth, downsampledHeight int
}

// ScanInfo describes one scan of a multi-scan file.
//
// The first CompsInScan entries of ComponentIndex are valid, in increasing
// order. Ss and Se select the spectral band in zig-zag order; Ah and Al are
// the successive approximation bit positions.
type ScanInfo struct {
	CompsInScan    int
	ComponentIndex [MaxCompsInScan]int
	Ss, Se         int
	Ah, Al         int
}
