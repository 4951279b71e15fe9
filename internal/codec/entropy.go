package codec

import (
	"math/bits"

	"github.com/pkg/errors"
)

const (
	// maxEOBRun is the longest run of end-of-band blocks one symbol codes.
	maxEOBRun = 0x7fff
	// maxCorrBits bounds the correction bits buffered during an EOB run in
	// a refinement scan.
	maxCorrBits = 1000
)

// huffEncoder encodes the blocks of one scan. In gather mode it only
// counts the symbols that would be emitted, for optimal table generation.
type huffEncoder struct {
	e      *emitter
	scan   *ScanInfo
	gather bool
	err    error

	dcLUT, acLUT   [NumHuffTbls]huffmanLUT
	dcFreq, acFreq [NumHuffTbls][257]int64

	lastDC [MaxComponents]int32

	// Progressive state.
	acSlot int
	eobrun uint32
	be, br []byte
}

func (h *huffEncoder) reset() {
	h.lastDC = [MaxComponents]int32{}
	h.eobrun = 0
	h.be, h.br = h.be[:0], h.br[:0]
	h.err = nil
}

func (h *huffEncoder) emitSymbol(lut *huffmanLUT, freq *[257]int64, sym int32) {
	if h.gather {
		freq[sym]++
		return
	}
	x := lut[sym]
	if x == 0 && h.err == nil {
		h.err = errors.Errorf("codec: missing Huffman code for symbol 0x%02x", sym)
		return
	}
	h.e.emit(x&(1<<24-1), x>>24)
}

func (h *huffEncoder) emitBits(v, nBits uint32) {
	if h.gather || nBits == 0 {
		return
	}
	h.e.emit(v&(1<<nBits-1), nBits)
}

// emitValue emits the symbol run<<4|size followed by size bits of value,
// coded as in section F.1.2.1 of ITU-T T.81.
func (h *huffEncoder) emitValue(lut *huffmanLUT, freq *[257]int64, run, value int32) {
	a, b := value, value
	if a < 0 {
		a, b = -value, value-1
	}
	nBits := uint32(bits.Len32(uint32(a)))
	h.emitSymbol(lut, freq, run<<4|int32(nBits))
	h.emitBits(uint32(b), nBits)
}

func (h *huffEncoder) emitCorrectionBits(buf []byte) {
	if h.gather {
		return
	}
	for _, bit := range buf {
		h.e.emit(uint32(bit), 1)
	}
}

// emitEOBRun emits any pending EOB run together with its correction bits.
func (h *huffEncoder) emitEOBRun() {
	if h.eobrun == 0 {
		return
	}
	nBits := uint32(bits.Len32(h.eobrun)) - 1
	h.emitSymbol(&h.acLUT[h.acSlot], &h.acFreq[h.acSlot], int32(nBits<<4))
	h.emitBits(h.eobrun, nBits)
	h.eobrun = 0
	h.emitCorrectionBits(h.be)
	h.be = h.be[:0]
}

func (h *huffEncoder) encodeSequential(comp *ComponentInfo, ci int, b *coefBlock) {
	dc := int32(b[0])
	h.emitValue(&h.dcLUT[comp.DCTblNo], &h.dcFreq[comp.DCTblNo], 0, dc-h.lastDC[ci])
	h.lastDC[ci] = dc

	lut, freq := &h.acLUT[comp.ACTblNo], &h.acFreq[comp.ACTblNo]
	run := int32(0)
	for k := 1; k < blockSize; k++ {
		ac := int32(b[k])
		if ac == 0 {
			run++
			continue
		}
		for run > 15 {
			h.emitSymbol(lut, freq, 0xf0)
			run -= 16
		}
		h.emitValue(lut, freq, run, ac)
		run = 0
	}
	if run > 0 {
		h.emitSymbol(lut, freq, 0x00)
	}
}

func (h *huffEncoder) encodeDCFirst(comp *ComponentInfo, ci int, b *coefBlock) {
	dc := int32(b[0]) >> uint(h.scan.Al)
	h.emitValue(&h.dcLUT[comp.DCTblNo], &h.dcFreq[comp.DCTblNo], 0, dc-h.lastDC[ci])
	h.lastDC[ci] = dc
}

func (h *huffEncoder) encodeDCRefine(b *coefBlock) {
	h.emitBits(uint32(b[0]>>uint(h.scan.Al)), 1)
}

func (h *huffEncoder) encodeACFirst(b *coefBlock) {
	s := h.scan
	lut, freq := &h.acLUT[h.acSlot], &h.acFreq[h.acSlot]
	al := uint(s.Al)
	run := int32(0)
	for k := s.Ss; k <= s.Se; k++ {
		v := int32(b[k])
		if v == 0 {
			run++
			continue
		}
		// The magnitude is shifted before the sign is applied, so that
		// point transform rounds toward zero.
		var mag, coded int32
		if v < 0 {
			mag = -v >> al
			coded = ^mag
		} else {
			mag = v >> al
			coded = mag
		}
		if mag == 0 {
			run++
			continue
		}
		h.emitEOBRun()
		for run > 15 {
			h.emitSymbol(lut, freq, 0xf0)
			run -= 16
		}
		nBits := uint32(bits.Len32(uint32(mag)))
		h.emitSymbol(lut, freq, run<<4|int32(nBits))
		h.emitBits(uint32(coded), nBits)
		run = 0
	}
	if run > 0 {
		h.eobrun++
		if h.eobrun == maxEOBRun {
			h.emitEOBRun()
		}
	}
}

func (h *huffEncoder) encodeACRefine(b *coefBlock) {
	s := h.scan
	lut, freq := &h.acLUT[h.acSlot], &h.acFreq[h.acSlot]
	al := uint(s.Al)

	var abs [blockSize]int32
	eob := 0
	for k := s.Ss; k <= s.Se; k++ {
		v := int32(b[k])
		if v < 0 {
			v = -v
		}
		abs[k] = v >> al
		if abs[k] == 1 {
			// Index of the last newly-nonzero coefficient.
			eob = k
		}
	}

	run := int32(0)
	h.br = h.br[:0]
	for k := s.Ss; k <= s.Se; k++ {
		v := abs[k]
		if v == 0 {
			run++
			continue
		}
		for run > 15 && k <= eob {
			h.emitEOBRun()
			h.emitSymbol(lut, freq, 0xf0)
			run -= 16
			h.emitCorrectionBits(h.br)
			h.br = h.br[:0]
		}
		if v > 1 {
			// Previously nonzero: only the correction bit is sent.
			h.br = append(h.br, byte(v&1))
			continue
		}
		h.emitEOBRun()
		h.emitSymbol(lut, freq, run<<4|1)
		sign := uint32(1)
		if b[k] < 0 {
			sign = 0
		}
		h.emitBits(sign, 1)
		h.emitCorrectionBits(h.br)
		h.br = h.br[:0]
		run = 0
	}
	if run > 0 || len(h.br) > 0 {
		h.eobrun++
		h.be = append(h.be, h.br...)
		h.br = h.br[:0]
		if h.eobrun == maxEOBRun || len(h.be) > maxCorrBits-blockSize+1 {
			h.emitEOBRun()
		}
	}
}

// encode runs the scan over every block.
func (h *huffEncoder) encode(c *Compressor, progressive bool) {
	s := h.scan
	c.forEachBlock(s, func(ci int, b *coefBlock) {
		comp := &c.CompInfo[ci]
		switch {
		case !progressive:
			h.encodeSequential(comp, ci, b)
		case s.Ss == 0 && s.Ah == 0:
			h.encodeDCFirst(comp, ci, b)
		case s.Ss == 0:
			h.encodeDCRefine(b)
		case s.Ah == 0:
			h.encodeACFirst(b)
		default:
			h.encodeACRefine(b)
		}
	})
	h.emitEOBRun()
	if !h.gather {
		h.e.alignByte()
	}
}

// forEachBlock visits the blocks of a scan in coding order. A single
// component scan covers only the component's real blocks; an interleaved
// scan covers whole MCUs, dummy blocks included.
func (c *Compressor) forEachBlock(s *ScanInfo, fn func(ci int, b *coefBlock)) {
	if s.CompsInScan == 1 {
		ci := s.ComponentIndex[0]
		comp := &c.CompInfo[ci]
		bw, _ := c.paddedBlocks(comp)
		for by := 0; by < comp.heightInBlocks; by++ {
			for bx := 0; bx < comp.widthInBlocks; bx++ {
				fn(ci, &c.coefs[ci][by*bw+bx])
			}
		}
		return
	}
	for my := 0; my < c.mcuRows; my++ {
		for mx := 0; mx < c.mcusPerRow; mx++ {
			for i := 0; i < s.CompsInScan; i++ {
				ci := s.ComponentIndex[i]
				comp := &c.CompInfo[ci]
				bw, _ := c.paddedBlocks(comp)
				for v := 0; v < comp.VSampFactor; v++ {
					row := (my*comp.VSampFactor + v) * bw
					for u := 0; u < comp.HSampFactor; u++ {
						fn(ci, &c.coefs[ci][row+mx*comp.HSampFactor+u])
					}
				}
			}
		}
	}
}

// scanTables reports which DC and AC table slots a scan codes with.
func (c *Compressor) scanTables(s *ScanInfo) (dc, ac [NumHuffTbls]bool) {
	for i := 0; i < s.CompsInScan; i++ {
		comp := &c.CompInfo[s.ComponentIndex[i]]
		if !c.progressive {
			dc[comp.DCTblNo] = true
			ac[comp.ACTblNo] = true
		} else if s.Ss == 0 {
			if s.Ah == 0 {
				dc[comp.DCTblNo] = true
			}
		} else {
			ac[comp.ACTblNo] = true
		}
	}
	return dc, ac
}

// encodeScan writes the tables, header and entropy-coded data of one scan.
func (c *Compressor) encodeScan(n int, s *ScanInfo) error {
	h := &huffEncoder{e: &c.e, scan: s}
	if s.Ss != 0 {
		h.acSlot = c.CompInfo[s.ComponentIndex[0]].ACTblNo
	}
	dcUsed, acUsed := c.scanTables(s)

	if c.OptimizeCoding {
		h.gather = true
		h.encode(c, c.progressive)
		for slot := 0; slot < NumHuffTbls; slot++ {
			if dcUsed[slot] {
				t, err := genOptimalTable(&h.dcFreq[slot])
				if err != nil {
					return err
				}
				c.DCHuffTbls[slot], c.sentDC[slot] = t, false
			}
			if acUsed[slot] {
				t, err := genOptimalTable(&h.acFreq[slot])
				if err != nil {
					return err
				}
				c.ACHuffTbls[slot], c.sentAC[slot] = t, false
			}
		}
		h.gather = false
		h.reset()
	}

	for slot := 0; slot < NumHuffTbls; slot++ {
		if dcUsed[slot] {
			t := c.DCHuffTbls[slot]
			if t == nil {
				return errors.Errorf("codec: DC Huffman table %d was not defined", slot)
			}
			if err := h.dcLUT[slot].init(t); err != nil {
				return err
			}
			if !c.sentDC[slot] {
				c.writeDHT(0, slot, t)
				c.sentDC[slot] = true
			}
		}
		if acUsed[slot] {
			t := c.ACHuffTbls[slot]
			if t == nil {
				return errors.Errorf("codec: AC Huffman table %d was not defined", slot)
			}
			if err := h.acLUT[slot].init(t); err != nil {
				return err
			}
			if !c.sentAC[slot] {
				c.writeDHT(1, slot, t)
				c.sentAC[slot] = true
			}
		}
	}

	c.log().Tracef("codec: scan %d: %d components %v Ss=%d Se=%d Ah=%d Al=%d",
		n, s.CompsInScan, s.ComponentIndex[:s.CompsInScan], s.Ss, s.Se, s.Ah, s.Al)
	c.writeSOS(s)
	h.encode(c, c.progressive)
	if h.err != nil {
		return h.err
	}
	return c.e.err
}

// isBaseline reports whether the frame fits the baseline process: sequential,
// 8-bit quantization tables and Huffman slots 0 and 1 only.
func (c *Compressor) isBaseline() bool {
	if c.progressive {
		return false
	}
	for i := 0; i < c.NumComponents; i++ {
		comp := &c.CompInfo[i]
		if comp.DCTblNo > 1 || comp.ACTblNo > 1 || c.QuantTbls[comp.QuantTblNo].sixteenBit() {
			return false
		}
	}
	return true
}

// writeFrame writes the quantization tables, the frame header, every scan
// and the end of image marker.
func (c *Compressor) writeFrame() error {
	for i := 0; i < c.NumComponents; i++ {
		slot := c.CompInfo[i].QuantTblNo
		if !c.sentQuant[slot] {
			c.writeDQT(slot)
			c.sentQuant[slot] = true
		}
	}
	switch {
	case c.progressive:
		c.writeSOF(sof2Marker)
	case c.isBaseline():
		c.writeSOF(sof0Marker)
	default:
		c.writeSOF(sof1Marker)
	}
	for n := range c.scans {
		if err := c.encodeScan(n, &c.scans[n]); err != nil {
			return err
		}
	}
	c.e.writeMarker(eoiMarker)
	return c.e.err
}
