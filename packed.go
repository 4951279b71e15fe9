package jpegenc

import (
	"fmt"
)

// DataType is the type of one sample.
type DataType int

const (
	TypeUint8 DataType = iota
	TypeUint16
	TypeFloat
	TypeFloat16
)

func (t DataType) String() string {
	switch t {
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeFloat:
		return "float"
	case TypeFloat16:
		return "float16"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Size returns the number of bytes of one sample.
func (t DataType) Size() int {
	switch t {
	case TypeUint16, TypeFloat16:
		return 2
	case TypeFloat:
		return 4
	}
	return 1
}

type Endianness int

const (
	NativeEndian Endianness = iota
	LittleEndian
	BigEndian
)

// PixelFormat describes the memory layout of a PackedImage.
type PixelFormat struct {
	NumChannels int
	DataType    DataType
	Endianness  Endianness
	// Align is the row alignment in bytes; 0 means rows are packed.
	Align int
}

// RowBytes returns the stride of a row of xsize pixels.
func (f PixelFormat) RowBytes(xsize int) int {
	n := xsize * f.NumChannels * f.DataType.Size()
	if f.Align > 1 {
		n = (n + f.Align - 1) / f.Align * f.Align
	}
	return n
}

// PackedImage is one plane of interleaved samples.
type PackedImage struct {
	XSize, YSize int
	Format       PixelFormat
	// Stride is the distance in bytes between the starts of two rows.
	Stride int
	Pixels []byte
}

// NewPackedImage allocates a zeroed xsize x ysize image.
func NewPackedImage(xsize, ysize int, format PixelFormat) PackedImage {
	stride := format.RowBytes(xsize)
	return PackedImage{
		XSize:  xsize,
		YSize:  ysize,
		Format: format,
		Stride: stride,
		Pixels: make([]byte, stride*ysize),
	}
}

// BasicInfo holds the properties shared by all frames of a file.
type BasicInfo struct {
	XSize, YSize     int
	NumColorChannels int
	AlphaBits        int
	// BitsPerSample is informative; 0 means unspecified.
	BitsPerSample int
}

type Metadata struct {
	Exif []byte
}

type PackedFrame struct {
	Color PackedImage
}

// PackedPixelFile is a decoded image: its frames plus the metadata to carry
// into the encoded files.
type PackedPixelFile struct {
	Info          BasicInfo
	ColorEncoding ColorEncoding
	ICC           []byte
	Metadata      Metadata
	Frames        []PackedFrame
}

// EncodedImage holds one bitstream per frame, in frame order.
type EncodedImage struct {
	Bitstreams [][]byte
}

// VerifyBasicInfo checks the properties every encoder relies on.
func VerifyBasicInfo(info BasicInfo) error {
	if info.XSize <= 0 || info.YSize <= 0 {
		return newError(ErrInvalidPixelFormat, "empty image %dx%d", info.XSize, info.YSize)
	}
	if info.NumColorChannels != 1 && info.NumColorChannels != 3 {
		return newError(ErrInvalidPixelFormat, "invalid number of color channels %d", info.NumColorChannels)
	}
	if info.BitsPerSample < 0 || info.BitsPerSample > 16 {
		return newError(ErrInvalidPixelFormat, "invalid bits per sample %d", info.BitsPerSample)
	}
	return nil
}

// VerifyPackedImage checks that img matches info and that its buffer holds
// every row.
func VerifyPackedImage(img PackedImage, info BasicInfo) error {
	if img.XSize != info.XSize || img.YSize != info.YSize {
		return newError(ErrInvalidPixelFormat, "frame size %dx%d does not match image size %dx%d",
			img.XSize, img.YSize, info.XSize, info.YSize)
	}
	if img.Format.NumChannels != info.NumColorChannels {
		return newError(ErrInvalidPixelFormat, "frame has %d channels, want %d",
			img.Format.NumChannels, info.NumColorChannels)
	}
	if img.Format.DataType != TypeUint8 {
		return newError(ErrInvalidPixelFormat, "unsupported pixel data type %v", img.Format.DataType)
	}
	row := img.XSize * img.Format.NumChannels
	if img.Stride < row {
		return newError(ErrInvalidPixelFormat, "stride %d shorter than a row of %d bytes", img.Stride, row)
	}
	if len(img.Pixels) < img.Stride*(img.YSize-1)+row {
		return newError(ErrInvalidPixelFormat, "pixel buffer of %d bytes too small", len(img.Pixels))
	}
	return nil
}
