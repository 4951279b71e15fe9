// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"io"

	"github.com/pkg/errors"
)

// writer is the destination of the emitter.
type writer interface {
	io.Writer
	io.ByteWriter
}

// emitter writes markers and entropy-coded data. err is the first error
// encountered during writing; all attempted writes after it become no-ops.
type emitter struct {
	w   writer
	err error
	// buf is a scratch buffer.
	buf [16]byte
	// bits and nBits are accumulated bits to write to w.
	bits, nBits uint32
}

func (e *emitter) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *emitter) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

// emit emits the least significant nBits bits of bits to the bit-stream.
// The precondition is bits < 1<<nBits && nBits <= 16.
func (e *emitter) emit(bits, nBits uint32) {
	nBits += e.nBits
	bits <<= 32 - nBits
	bits |= e.bits
	for nBits >= 8 {
		b := uint8(bits >> 24)
		e.writeByte(b)
		if b == 0xff {
			e.writeByte(0x00)
		}
		bits <<= 8
		nBits -= 8
	}
	e.bits, e.nBits = bits, nBits
}

// alignByte pads the last byte of the entropy-coded segment with 1's and
// resets the bit buffer.
func (e *emitter) alignByte() {
	e.emit(0x7f, 7)
	e.bits, e.nBits = 0, 0
}

// writeMarker writes a marker without a length field.
func (e *emitter) writeMarker(marker uint8) {
	e.buf[0] = 0xff
	e.buf[1] = marker
	e.write(e.buf[:2])
}

// writeMarkerHeader writes the header for a marker with the given length,
// which includes the two length bytes.
func (e *emitter) writeMarkerHeader(marker uint8, markerlen int) {
	e.buf[0] = 0xff
	e.buf[1] = marker
	e.buf[2] = uint8(markerlen >> 8)
	e.buf[3] = uint8(markerlen & 0xff)
	e.write(e.buf[:4])
}

// writeJFIF writes the JFIF APP0 marker.
func (c *Compressor) writeJFIF() {
	e := &c.e
	e.writeMarkerHeader(APP0, 16)
	e.write([]byte("JFIF\x00"))
	e.writeByte(c.JFIFMajorVersion)
	e.writeByte(c.JFIFMinorVersion)
	e.writeByte(c.DensityUnit)
	e.buf[0] = uint8(c.XDensity >> 8)
	e.buf[1] = uint8(c.XDensity)
	e.buf[2] = uint8(c.YDensity >> 8)
	e.buf[3] = uint8(c.YDensity)
	// No thumbnail.
	e.buf[4] = 0
	e.buf[5] = 0
	e.write(e.buf[:6])
}

// writeAdobe writes the Adobe APP14 marker. The transform flag is 1 for
// YCbCr and 0 for everything else.
func (c *Compressor) writeAdobe() {
	e := &c.e
	e.writeMarkerHeader(APP14, 14)
	e.write([]byte("Adobe"))
	var transform byte
	if c.JPEGColorSpace == YCbCr {
		transform = 1
	}
	// Version 100, flags0 and flags1 zero.
	e.write([]byte{0x00, 0x64, 0x00, 0x00, 0x00, 0x00, transform})
}

// writeDQT writes the Define Quantization Table marker for one slot.
func (c *Compressor) writeDQT(slot int) {
	e := &c.e
	t := c.QuantTbls[slot]
	prec := 0
	if t.sixteenBit() {
		prec = 1
	}
	e.writeMarkerHeader(dqtMarker, 2+1+blockSize*(prec+1))
	e.writeByte(uint8(prec<<4 | slot))
	for zig := 0; zig < blockSize; zig++ {
		v := t.Val[unzig[zig]]
		if prec == 1 {
			e.writeByte(uint8(v >> 8))
		}
		e.writeByte(uint8(v))
	}
}

// writeSOF writes the Start Of Frame marker.
func (c *Compressor) writeSOF(marker uint8) {
	e := &c.e
	e.writeMarkerHeader(marker, 8+3*c.NumComponents)
	e.buf[0] = BitsInSample
	e.buf[1] = uint8(c.ImageHeight >> 8)
	e.buf[2] = uint8(c.ImageHeight & 0xff)
	e.buf[3] = uint8(c.ImageWidth >> 8)
	e.buf[4] = uint8(c.ImageWidth & 0xff)
	e.buf[5] = uint8(c.NumComponents)
	e.write(e.buf[:6])
	for i := 0; i < c.NumComponents; i++ {
		comp := &c.CompInfo[i]
		e.buf[0] = uint8(comp.ID)
		e.buf[1] = uint8(comp.HSampFactor<<4 | comp.VSampFactor)
		e.buf[2] = uint8(comp.QuantTblNo)
		e.write(e.buf[:3])
	}
}

// writeDHT writes the Define Huffman Table marker for one table. class is 0
// for DC tables and 1 for AC tables.
func (c *Compressor) writeDHT(class, slot int, t *HuffTable) {
	e := &c.e
	e.writeMarkerHeader(dhtMarker, 2+1+16+len(t.Value))
	e.writeByte(uint8(class<<4 | slot))
	e.write(t.Count[:])
	e.write(t.Value)
}

// writeSOS writes the Start Of Scan marker. In progressive mode the table
// selectors that the scan does not use are written as zero.
func (c *Compressor) writeSOS(s *ScanInfo) {
	e := &c.e
	e.writeMarkerHeader(sosMarker, 6+2*s.CompsInScan)
	e.writeByte(uint8(s.CompsInScan))
	for i := 0; i < s.CompsInScan; i++ {
		comp := &c.CompInfo[s.ComponentIndex[i]]
		td, ta := comp.DCTblNo, comp.ACTblNo
		if c.progressive {
			if s.Ss == 0 {
				ta = 0
				if s.Ah != 0 {
					td = 0
				}
			} else {
				td = 0
			}
		}
		e.buf[0] = uint8(comp.ID)
		e.buf[1] = uint8(td<<4 | ta)
		e.write(e.buf[:2])
	}
	e.buf[0] = uint8(s.Ss)
	e.buf[1] = uint8(s.Se)
	e.buf[2] = uint8(s.Ah<<4 | s.Al)
	e.write(e.buf[:3])
}

// WriteMarkerHeader starts an application marker of datalen payload bytes,
// to be followed by exactly datalen calls to WriteMarkerByte. It is only
// legal between StartCompress and the first scanline.
func (c *Compressor) WriteMarkerHeader(marker byte, datalen int) error {
	if err := c.requireState(stateHeader); err != nil {
		return err
	}
	if c.markerRemaining != 0 {
		return errors.Errorf("codec: previous marker has %d bytes outstanding", c.markerRemaining)
	}
	if datalen < 0 || datalen > maxMarkerLength {
		return errors.Errorf("codec: bogus marker length %d", datalen)
	}
	c.e.writeMarkerHeader(marker, datalen+2)
	c.markerRemaining = datalen
	return c.e.err
}

// WriteMarkerByte writes one payload byte of the current marker.
func (c *Compressor) WriteMarkerByte(b byte) error {
	if err := c.requireState(stateHeader); err != nil {
		return err
	}
	if c.markerRemaining <= 0 {
		return errors.New("codec: marker byte written past the declared length")
	}
	c.e.writeByte(b)
	c.markerRemaining--
	return c.e.err
}

// WriteMarker writes a complete marker with the given payload.
func (c *Compressor) WriteMarker(marker byte, data []byte) error {
	if err := c.WriteMarkerHeader(marker, len(data)); err != nil {
		return err
	}
	for _, b := range data {
		if err := c.WriteMarkerByte(b); err != nil {
			return err
		}
	}
	return nil
}
