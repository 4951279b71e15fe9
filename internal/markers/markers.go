// Package markers splits ICC profiles and Exif blobs into JPEG application
// marker segments.
package markers

import (
	"github.com/pkg/errors"
)

const (
	// MaxBytesInMarker is the largest payload of a marker segment; the
	// length field adds two bytes.
	MaxBytesInMarker = 65533

	// ICCSignature prefixes every ICC profile segment.
	ICCSignature = "ICC_PROFILE\x00"
	// ExifSignature prefixes the Exif segment.
	ExifSignature = "Exif\x00\x00"

	// ICCMarker and ExifMarker are APP2 and APP1.
	ICCMarker  = 0xe2
	ExifMarker = 0xe1

	// MaxICCBytesInMarker leaves room for the signature and the two
	// sequence bytes.
	MaxICCBytesInMarker = MaxBytesInMarker - len(ICCSignature) - 2
)

// Writer receives marker segments one byte at a time.
type Writer interface {
	WriteMarkerHeader(marker byte, datalen int) error
	WriteMarkerByte(b byte) error
}

// NumICCMarkers returns how many APP2 segments a profile of n bytes takes.
func NumICCMarkers(n int) int {
	return (n + MaxICCBytesInMarker - 1) / MaxICCBytesInMarker
}

func writeBytes(w Writer, p []byte) error {
	for _, b := range p {
		if err := w.WriteMarkerByte(b); err != nil {
			return err
		}
	}
	return nil
}

// WriteICCProfile writes icc as a sequence of APP2 segments, each holding
// the signature, its 1-based index, the segment count and a chunk of the
// profile. An empty profile writes nothing.
func WriteICCProfile(w Writer, icc []byte) error {
	n := NumICCMarkers(len(icc))
	if n > 255 {
		return errors.Errorf("ICC profile of %d bytes needs %d segments", len(icc), n)
	}
	for i := 0; i < n; i++ {
		chunk := icc[i*MaxICCBytesInMarker:]
		if len(chunk) > MaxICCBytesInMarker {
			chunk = chunk[:MaxICCBytesInMarker]
		}
		if err := w.WriteMarkerHeader(ICCMarker, len(chunk)+len(ICCSignature)+2); err != nil {
			return errors.Wrapf(err, "ICC segment %d of %d", i+1, n)
		}
		if err := writeBytes(w, []byte(ICCSignature)); err != nil {
			return err
		}
		if err := w.WriteMarkerByte(byte(i + 1)); err != nil {
			return err
		}
		if err := w.WriteMarkerByte(byte(n)); err != nil {
			return err
		}
		if err := writeBytes(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

// WriteExif writes exif as one APP1 segment behind the Exif signature. The
// blob is not split; a payload over MaxBytesInMarker is left for the writer
// to reject.
func WriteExif(w Writer, exif []byte) error {
	if err := w.WriteMarkerHeader(ExifMarker, len(exif)+len(ExifSignature)); err != nil {
		return errors.Wrap(err, "Exif segment")
	}
	if err := writeBytes(w, []byte(ExifSignature)); err != nil {
		return err
	}
	return writeBytes(w, exif)
}
