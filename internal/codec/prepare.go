package codec

import (
	"image/color"
)

// plane is one full-resolution or downsampled component.
type plane struct {
	w, h, stride int
	pix          []byte
}

// at returns the sample at (x, y), replicating the right and bottom edges.
func (p *plane) at(x, y int) int {
	if x >= p.w {
		x = p.w - 1
	}
	if y >= p.h {
		y = p.h - 1
	}
	return int(p.pix[y*p.stride+x])
}

// convertColor splits the stored scanlines into one full-resolution plane
// per JPEG component.
func (c *Compressor) convertColor() []plane {
	w, h, n := c.ImageWidth, c.ImageHeight, c.InputComponents
	planes := make([]plane, c.NumComponents)
	for i := range planes {
		planes[i] = plane{w: w, h: h, stride: w, pix: make([]byte, w*h)}
	}
	if c.InColorSpace == Grayscale {
		copy(planes[0].pix, c.pixels)
		return planes
	}
	toYCbCr := c.InColorSpace == RGB && c.JPEGColorSpace != RGB
	for i := 0; i < w*h; i++ {
		s := c.pixels[i*n : i*n+n : i*n+n]
		a, b, d := s[0], s[1], s[2]
		if toYCbCr {
			a, b, d = color.RGBToYCbCr(a, b, d)
		}
		planes[0].pix[i] = a
		if c.NumComponents == 3 {
			planes[1].pix[i] = b
			planes[2].pix[i] = d
		}
	}
	return planes
}

// downsample averages hExp x vExp boxes of src into the component's plane,
// padded to whole blocks.
func downsample(src *plane, comp *ComponentInfo, hExp, vExp int) *plane {
	dst := &plane{
		w:      comp.downsampledWidth,
		h:      comp.downsampledHeight,
		stride: comp.widthInBlocks * 8,
	}
	ph := comp.heightInBlocks * 8
	dst.pix = make([]byte, dst.stride*ph)
	n := hExp * vExp
	for y := 0; y < ph; y++ {
		for x := 0; x < dst.stride; x++ {
			sum := 0
			for j := 0; j < vExp; j++ {
				for i := 0; i < hExp; i++ {
					sum += src.at(x*hExp+i, y*vExp+j)
				}
			}
			dst.pix[y*dst.stride+x] = uint8((sum + n/2) / n)
		}
	}
	return dst
}

// computeCoefficients transforms and quantizes every block of every
// component, including the dummy blocks that pad the last MCU row and
// column.
func (c *Compressor) computeCoefficients() error {
	var full []plane
	if !c.RawDataIn {
		full = c.convertColor()
		c.pixels = nil
	}
	for ci := 0; ci < c.NumComponents; ci++ {
		comp := &c.CompInfo[ci]
		var src *plane
		if c.RawDataIn {
			src = &plane{
				w:      comp.downsampledWidth,
				h:      comp.downsampledHeight,
				stride: c.rawStrides[ci],
				pix:    c.raw[ci],
			}
			// Already downsampled; only pad to whole blocks.
			src = downsample(src, comp, 1, 1)
		} else {
			src = downsample(&full[ci], comp, c.maxH/comp.HSampFactor, c.maxV/comp.VSampFactor)
		}
		c.blocksFor(ci, src)
	}
	c.raw = nil
	return nil
}

// paddedBlocks returns the component's block grid size rounded up to whole
// MCUs.
func (c *Compressor) paddedBlocks(comp *ComponentInfo) (bw, bh int) {
	return c.mcusPerRow * comp.HSampFactor, c.mcuRows * comp.VSampFactor
}

func (c *Compressor) blocksFor(ci int, p *plane) {
	comp := &c.CompInfo[ci]
	q := c.QuantTbls[comp.QuantTblNo]
	bw, bh := c.paddedBlocks(comp)
	coefs := make([]coefBlock, bw*bh)
	var b block
	for by := 0; by < comp.heightInBlocks; by++ {
		row := coefs[by*bw : (by+1)*bw]
		for bx := 0; bx < comp.widthInBlocks; bx++ {
			for y := 0; y < 8; y++ {
				off := (by*8+y)*p.stride + bx*8
				for x := 0; x < 8; x++ {
					b[y*8+x] = int32(p.pix[off+x])
				}
			}
			quantize(&row[bx], &b, q)
		}
		// Dummy blocks at the right edge repeat the DC of the last real
		// block.
		lastDC := row[comp.widthInBlocks-1][0]
		for bx := comp.widthInBlocks; bx < bw; bx++ {
			row[bx][0] = lastDC
		}
	}
	// Dummy block rows at the bottom take the DC of the last block of the
	// same MCU in the row above.
	h := comp.HSampFactor
	for by := comp.heightInBlocks; by < bh; by++ {
		row, above := coefs[by*bw:(by+1)*bw], coefs[(by-1)*bw:by*bw]
		for m := 0; m < c.mcusPerRow; m++ {
			lastDC := above[m*h+h-1][0]
			for bi := 0; bi < h; bi++ {
				row[m*h+bi][0] = lastDC
			}
		}
	}
	c.coefs[ci] = coefs
}
