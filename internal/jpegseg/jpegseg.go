// Package jpegseg splits a JPEG bitstream into its marker segments, for
// inspecting what an encoder produced.
package jpegseg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Marker codes.
const (
	SOF0  = 0xc0
	SOF1  = 0xc1
	SOF2  = 0xc2
	DHT   = 0xc4
	RST0  = 0xd0
	RST7  = 0xd7
	SOI   = 0xd8
	EOI   = 0xd9
	SOS   = 0xda
	DQT   = 0xdb
	APP0  = 0xe0
	APP1  = 0xe1
	APP2  = 0xe2
	APP14 = 0xee
	TEM   = 0x01
)

// FormatError reports that the input is not a valid JPEG.
type FormatError string

func (e FormatError) Error() string { return "invalid JPEG format: " + string(e) }

// Segment is one marker segment. Data is the payload after the length
// field; for SOS, Entropy is the entropy-coded data that follows it.
type Segment struct {
	Marker  byte
	Offset  int
	Data    []byte
	Entropy []byte
}

func (s Segment) String() string {
	return fmt.Sprintf("%s at %d (%d bytes)", MarkerName(s.Marker), s.Offset, len(s.Data))
}

// MarkerName returns a short name for a marker code.
func MarkerName(m byte) string {
	switch {
	case m == SOF0:
		return "SOF0"
	case m == SOF1:
		return "SOF1"
	case m == SOF2:
		return "SOF2"
	case m == DHT:
		return "DHT"
	case m >= RST0 && m <= RST7:
		return fmt.Sprintf("RST%d", m-RST0)
	case m == SOI:
		return "SOI"
	case m == EOI:
		return "EOI"
	case m == SOS:
		return "SOS"
	case m == DQT:
		return "DQT"
	case m >= APP0 && m <= APP0+15:
		return fmt.Sprintf("APP%d", m-APP0)
	}
	return fmt.Sprintf("0x%02X", m)
}

// Parse walks b from SOI to EOI.
func Parse(b []byte) ([]Segment, error) {
	if len(b) < 2 || b[0] != 0xff || b[1] != SOI {
		return nil, FormatError("missing SOI marker")
	}
	segs := []Segment{{Marker: SOI}}
	pos := 2
	for {
		if pos >= len(b) {
			return segs, FormatError("missing EOI marker")
		}
		if b[pos] != 0xff {
			return segs, FormatError(fmt.Sprintf("expected marker at %d", pos))
		}
		// Section B.1.1.2 allows any number of fill bytes.
		for pos < len(b) && b[pos] == 0xff {
			pos++
		}
		if pos >= len(b) {
			return segs, FormatError("truncated marker")
		}
		marker := b[pos]
		start := pos - 1
		pos++
		if marker == EOI {
			return append(segs, Segment{Marker: EOI, Offset: start}), nil
		}
		if marker == TEM || marker == SOI || (marker >= RST0 && marker <= RST7) {
			segs = append(segs, Segment{Marker: marker, Offset: start})
			continue
		}
		if pos+2 > len(b) {
			return segs, FormatError("truncated segment length")
		}
		n := int(binary.BigEndian.Uint16(b[pos:]))
		if n < 2 || pos+n > len(b) {
			return segs, FormatError(fmt.Sprintf("bad length %d for %s", n, MarkerName(marker)))
		}
		seg := Segment{Marker: marker, Offset: start, Data: b[pos+2 : pos+n]}
		pos += n
		if marker == SOS {
			end := entropyEnd(b, pos)
			seg.Entropy = b[pos:end]
			pos = end
		}
		segs = append(segs, seg)
	}
}

// entropyEnd returns the offset of the first marker after entropy-coded
// data starting at pos, skipping stuffed zero bytes and restart markers.
func entropyEnd(b []byte, pos int) int {
	for pos+1 < len(b) {
		if b[pos] == 0xff {
			next := b[pos+1]
			if next != 0 && !(next >= RST0 && next <= RST7) && next != 0xff {
				return pos
			}
			if next == 0xff {
				pos++
				continue
			}
			pos += 2
			continue
		}
		pos++
	}
	return len(b)
}

// ScanComponent is one component selector of a scan header.
type ScanComponent struct {
	Selector byte
	// Td and Ta are the DC and AC table selectors.
	Td, Ta byte
}

// ScanHeader is a decoded SOS header.
type ScanHeader struct {
	Components []ScanComponent
	// Ss and Se are the spectral selection bounds; Ah and Al the
	// successive approximation bit positions.
	Ss, Se, Ah, Al int
}

// Scan decodes the header of an SOS segment. Specified in section B.2.3.
func (s Segment) Scan() (ScanHeader, error) {
	if s.Marker != SOS {
		return ScanHeader{}, errors.Errorf("%s is not a scan", MarkerName(s.Marker))
	}
	d := s.Data
	if len(d) < 4 {
		return ScanHeader{}, FormatError("SOS has wrong length")
	}
	nComp := int(d[0])
	if nComp < 1 || nComp > 4 || len(d) != 4+2*nComp {
		return ScanHeader{}, FormatError("SOS length inconsistent with number of components")
	}
	h := ScanHeader{Components: make([]ScanComponent, nComp)}
	for i := range h.Components {
		cs := d[1+2*i]
		for j := 0; j < i; j++ {
			if h.Components[j].Selector == cs {
				return ScanHeader{}, FormatError("repeated component selector")
			}
		}
		h.Components[i] = ScanComponent{Selector: cs, Td: d[2+2*i] >> 4, Ta: d[2+2*i] & 0x0f}
	}
	p := d[1+2*nComp:]
	h.Ss, h.Se = int(p[0]), int(p[1])
	h.Ah, h.Al = int(p[2]>>4), int(p[2]&0x0f)
	if h.Ss > h.Se || h.Se > 63 {
		return ScanHeader{}, FormatError("bad spectral selection bounds")
	}
	return h, nil
}

// ICCProfile reassembles the profile carried by the APP2 segments, checking
// that every chunk from 1 to the declared count appears exactly once. It
// returns nil when there is no profile.
func ICCProfile(segs []Segment) ([]byte, error) {
	const sig = "ICC_PROFILE\x00"
	var (
		chunks [][]byte
		total  int
	)
	for _, s := range segs {
		if s.Marker != APP2 || !bytes.HasPrefix(s.Data, []byte(sig)) {
			continue
		}
		if len(s.Data) < len(sig)+2 {
			return nil, FormatError("short ICC segment")
		}
		idx, n := int(s.Data[len(sig)]), int(s.Data[len(sig)+1])
		if chunks == nil {
			if n == 0 {
				return nil, FormatError("ICC segment count is zero")
			}
			chunks = make([][]byte, n)
			total = n
		}
		if n != total || idx < 1 || idx > total {
			return nil, FormatError(fmt.Sprintf("ICC segment %d of %d", idx, n))
		}
		if chunks[idx-1] != nil {
			return nil, FormatError(fmt.Sprintf("duplicate ICC segment %d", idx))
		}
		chunks[idx-1] = s.Data[len(sig)+2:]
	}
	if chunks == nil {
		return nil, nil
	}
	var icc []byte
	for i, c := range chunks {
		if c == nil {
			return nil, FormatError(fmt.Sprintf("missing ICC segment %d of %d", i+1, total))
		}
		icc = append(icc, c...)
	}
	return icc, nil
}

// Exif returns the TIFF payload of the first APP1 Exif segment, or nil.
func Exif(segs []Segment) []byte {
	const sig = "Exif\x00\x00"
	for _, s := range segs {
		if s.Marker == APP1 && bytes.HasPrefix(s.Data, []byte(sig)) {
			return s.Data[len(sig):]
		}
	}
	return nil
}

// Scans returns the decoded headers of every SOS segment in order.
func Scans(segs []Segment) ([]ScanHeader, error) {
	var scans []ScanHeader
	for _, s := range segs {
		if s.Marker != SOS {
			continue
		}
		h, err := s.Scan()
		if err != nil {
			return nil, errors.Wrapf(err, "scan at %d", s.Offset)
		}
		scans = append(scans, h)
	}
	return scans, nil
}

// FrameComponent is one component of a frame header.
type FrameComponent struct {
	ID   byte
	H, V int
	Tq   byte
}

// FrameHeader is a decoded SOFn header.
type FrameHeader struct {
	Marker        byte
	Precision     int
	Width, Height int
	Components    []FrameComponent
}

// Frame decodes the header of a SOF0, SOF1 or SOF2 segment. Specified in
// section B.2.2.
func (s Segment) Frame() (FrameHeader, error) {
	if s.Marker != SOF0 && s.Marker != SOF1 && s.Marker != SOF2 {
		return FrameHeader{}, errors.Errorf("%s is not a frame header", MarkerName(s.Marker))
	}
	d := s.Data
	if len(d) < 6 {
		return FrameHeader{}, FormatError("SOF has wrong length")
	}
	f := FrameHeader{
		Marker:    s.Marker,
		Precision: int(d[0]),
		Height:    int(binary.BigEndian.Uint16(d[1:])),
		Width:     int(binary.BigEndian.Uint16(d[3:])),
	}
	nComp := int(d[5])
	if len(d) != 6+3*nComp {
		return FrameHeader{}, FormatError("SOF length inconsistent with number of components")
	}
	for i := 0; i < nComp; i++ {
		c := d[6+3*i:]
		f.Components = append(f.Components, FrameComponent{ID: c[0], H: int(c[1] >> 4), V: int(c[1] & 0x0f), Tq: c[2]})
	}
	return f, nil
}

// Frame returns the header of the first frame in segs.
func Frame(segs []Segment) (FrameHeader, error) {
	for _, s := range segs {
		switch s.Marker {
		case SOF0, SOF1, SOF2:
			return s.Frame()
		}
	}
	return FrameHeader{}, FormatError("missing SOF marker")
}

// Count returns how many segments have the given marker.
func Count(segs []Segment, marker byte) int {
	n := 0
	for _, s := range segs {
		if s.Marker == marker {
			n++
		}
	}
	return n
}
