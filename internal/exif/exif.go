// Package exif reads and resets the orientation tag of a TIFF-structured
// Exif blob.
package exif

import (
	"encoding/binary"
)

const (
	orientationTag = 0x0112
	typeShort      = 3
	entrySize      = 12
)

// orientationOffset returns the offset of the orientation value in IFD0
// and the blob's byte order, or -1 when the blob is malformed or has no
// usable orientation entry.
func orientationOffset(exif []byte) (int, binary.ByteOrder) {
	if len(exif) < 12 {
		return -1, nil
	}
	var order binary.ByteOrder
	switch string(exif[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return -1, nil
	}
	ifd := order.Uint32(exif[4:8])
	if ifd < 8 || uint64(ifd)+2 > uint64(len(exif)) {
		return -1, nil
	}
	pos := int(ifd)
	n := int(order.Uint16(exif[pos:]))
	pos += 2
	for i := 0; i < n && pos+entrySize <= len(exif); i, pos = i+1, pos+entrySize {
		e := exif[pos : pos+entrySize]
		if order.Uint16(e[0:]) != orientationTag {
			continue
		}
		if order.Uint16(e[2:]) != typeShort || order.Uint32(e[4:]) != 1 {
			return -1, nil
		}
		if v := order.Uint16(e[8:]); v < 1 || v > 8 {
			return -1, nil
		}
		return pos + 8, order
	}
	return -1, nil
}

// Orientation returns the orientation value (1..8) of IFD0.
func Orientation(exif []byte) (int, bool) {
	off, order := orientationOffset(exif)
	if off < 0 {
		return 0, false
	}
	return int(order.Uint16(exif[off:])), true
}

// ResetOrientation sets the orientation of IFD0 to 1 (top-left) in place.
// Malformed blobs and blobs without a valid orientation entry are left
// untouched.
func ResetOrientation(exif []byte) {
	off, order := orientationOffset(exif)
	if off < 0 {
		return
	}
	order.PutUint16(exif[off:], 1)
}
