// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/pkg/errors"
)

// QuantTable is a quantization table in natural (not zig-zag) order.
type QuantTable struct {
	Val [blockSize]uint16
}

// sixteenBit reports whether the table needs 16-bit DQT precision.
func (t *QuantTable) sixteenBit() bool {
	for _, v := range t.Val {
		if v > 255 {
			return true
		}
	}
	return false
}

// unscaledQuant are the unscaled quantization tables in zig-zag order. The
// values are derived from section K.1 of ITU-T T.81, after converting from
// natural to zig-zag order.
var unscaledQuant = [2][blockSize]uint16{
	// Luminance.
	{
		16, 11, 12, 14, 12, 10, 16, 14,
		13, 14, 18, 17, 16, 19, 24, 40,
		26, 24, 22, 22, 24, 49, 35, 37,
		29, 40, 58, 51, 61, 60, 57, 51,
		56, 55, 64, 72, 92, 78, 64, 68,
		87, 69, 55, 56, 80, 109, 81, 87,
		95, 98, 103, 104, 103, 62, 77, 113,
		121, 112, 100, 120, 92, 101, 103, 99,
	},
	// Chrominance.
	{
		17, 18, 18, 24, 21, 24, 47, 26,
		26, 47, 99, 66, 56, 66, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
	},
}

// StdQuantTable returns the Annex K luminance (0) or chrominance (1) table
// in natural order.
func StdQuantTable(which int) [blockSize]uint16 {
	var t [blockSize]uint16
	for zig, v := range unscaledQuant[which&1] {
		t[unzig[zig]] = v
	}
	return t
}

// QualityScaling converts a 0..100 quality rating to a percentage scaling
// factor for the basic tables.
func QualityScaling(quality int) int {
	if quality <= 0 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	if quality < 50 {
		return 5000 / quality
	}
	return 200 - quality*2
}

// AddQuantTable stores basicTable, scaled by scaleFactor percent, in the
// given slot. With forceBaseline the entries are limited to 255.
func (c *Compressor) AddQuantTable(slot int, basicTable *[blockSize]uint16, scaleFactor int, forceBaseline bool) error {
	if err := c.requireState(stateStart); err != nil {
		return err
	}
	if slot < 0 || slot >= NumQuantTbls {
		return errors.Errorf("codec: bogus quantization table slot %d", slot)
	}
	t := &QuantTable{}
	for i, b := range basicTable {
		x := (int64(b)*int64(scaleFactor) + 50) / 100
		if x <= 0 {
			x = 1
		}
		if x > 32767 {
			x = 32767
		}
		if forceBaseline && x > 255 {
			x = 255
		}
		t.Val[i] = uint16(x)
	}
	c.QuantTbls[slot] = t
	return nil
}

// SetLinearQuality installs the standard tables scaled by scaleFactor
// percent.
func (c *Compressor) SetLinearQuality(scaleFactor int, forceBaseline bool) error {
	lum, chrom := StdQuantTable(0), StdQuantTable(1)
	if err := c.AddQuantTable(0, &lum, scaleFactor, forceBaseline); err != nil {
		return err
	}
	return c.AddQuantTable(1, &chrom, scaleFactor, forceBaseline)
}

// SetQuality installs the standard tables for a 0..100 quality rating.
func (c *Compressor) SetQuality(quality int, forceBaseline bool) error {
	return c.SetLinearQuality(QualityScaling(quality), forceBaseline)
}

// div returns a/b rounded to the nearest integer, instead of rounded to zero.
func div(a, b int32) int32 {
	if a >= 0 {
		return (a + (b >> 1)) / b
	}
	return -((-a + (b >> 1)) / b)
}

// quantize transforms b in place and stores its quantized coefficients, in
// zig-zag order, into dst.
func quantize(dst *coefBlock, b *block, q *QuantTable) {
	fdct(b)
	for zig := 0; zig < blockSize; zig++ {
		k := unzig[zig]
		dst[zig] = int16(div(b[k], 8*int32(q.Val[k])))
	}
}
