package sjpeg

import (
	"image/color"
	"math"
)

const sharpIterations = 4

// planes are the YCbCr samples handed to the codec. Chroma is cw x ch.
type planes struct {
	w, h      int
	cw, ch    int
	y, cb, cr []byte
}

func (p *planes) subsampled() bool {
	return p.cw != p.w || p.ch != p.h
}

// rgbAt returns the pixel at (x, y), replicating the right and bottom edges.
func rgbAt(rgb []byte, w, h, stride, x, y int) (r, g, b uint8) {
	x = min(x, w-1)
	y = min(y, h-1)
	o := y*stride + 3*x
	return rgb[o], rgb[o+1], rgb[o+2]
}

func toPlanes(rgb []byte, w, h, stride int, mode YUVMode) *planes {
	switch mode {
	case YUV444:
		return convert444(rgb, w, h, stride)
	case YUVSharp:
		return sharpen(rgb, w, h, stride, convert420(rgb, w, h, stride))
	}
	return convert420(rgb, w, h, stride)
}

func convert444(rgb []byte, w, h, stride int) *planes {
	p := &planes{w: w, h: h, cw: w, ch: h}
	p.y = make([]byte, w*h)
	p.cb = make([]byte, w*h)
	p.cr = make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			p.y[i], p.cb[i], p.cr[i] = color.RGBToYCbCr(rgbAt(rgb, w, h, stride, x, y))
		}
	}
	return p
}

// convert420 converts the average colour of each 2x2 box to chroma.
func convert420(rgb []byte, w, h, stride int) *planes {
	p := &planes{w: w, h: h, cw: (w + 1) / 2, ch: (h + 1) / 2}
	p.y = make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := rgbAt(rgb, w, h, stride, x, y)
			p.y[y*w+x], _, _ = color.RGBToYCbCr(r, g, b)
		}
	}
	p.cb = make([]byte, p.cw*p.ch)
	p.cr = make([]byte, p.cw*p.ch)
	for cy := 0; cy < p.ch; cy++ {
		for cx := 0; cx < p.cw; cx++ {
			var sr, sg, sb int
			for j := 0; j < 2; j++ {
				for i := 0; i < 2; i++ {
					r, g, b := rgbAt(rgb, w, h, stride, 2*cx+i, 2*cy+j)
					sr, sg, sb = sr+int(r), sg+int(g), sb+int(b)
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8((sr+2)/4), uint8((sg+2)/4), uint8((sb+2)/4))
			p.cb[cy*p.cw+cx], p.cr[cy*p.cw+cx] = cb, cr
		}
	}
	return p
}

// upsample returns the chroma sample seen by a decoder at (x, y) with
// triangle ("fancy") upsampling: 9/16 of the nearest sample, 3/16 of each
// horizontal and vertical neighbour and 1/16 of the diagonal one.
func upsample(c []float64, cw, ch, x, y int) float64 {
	cx, cy := x/2, y/2
	nx, ny := cx+1, cy+1
	if x%2 == 0 {
		nx = cx - 1
	}
	if y%2 == 0 {
		ny = cy - 1
	}
	nx = max(0, min(nx, cw-1))
	ny = max(0, min(ny, ch-1))
	return (9*c[cy*cw+cx] + 3*c[cy*cw+nx] + 3*c[ny*cw+cx] + c[ny*cw+nx]) / 16
}

func clamp255(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}

func toRGB(y, cb, cr float64) (r, g, b float64) {
	cb -= 128
	cr -= 128
	r = clamp255(y + 1.402*cr)
	g = clamp255(y - 0.344136*cb - 0.714136*cr)
	b = clamp255(y + 1.772*cb)
	return r, g, b
}

// reconstructionError is the squared RGB distance between the input and the
// planes decoded with triangle upsampling.
func reconstructionError(rgb []byte, stride int, p *planes) float64 {
	cb := make([]float64, len(p.cb))
	cr := make([]float64, len(p.cr))
	for i := range cb {
		cb[i], cr[i] = float64(p.cb[i]), float64(p.cr[i])
	}
	sum := 0.0
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			r, g, b := toRGB(float64(p.y[y*p.w+x]), upsample(cb, p.cw, p.ch, x, y), upsample(cr, p.cw, p.ch, x, y))
			o := y*stride + 3*x
			dr, dg, db := float64(rgb[o])-math.Round(r), float64(rgb[o+1])-math.Round(g), float64(rgb[o+2])-math.Round(b)
			sum += dr*dr + dg*dg + db*db
		}
	}
	return sum
}

// sharpen iteratively corrects the 4:2:0 planes against the RGB input. Each
// round decodes the planes, moves luma by the mean RGB error of its pixel
// and chroma by the mean chroma error of its 2x2 box. The best round wins.
func sharpen(rgb []byte, w, h, stride int, p *planes) *planes {
	yf := make([]float64, len(p.y))
	cbf := make([]float64, len(p.cb))
	crf := make([]float64, len(p.cr))
	for i, v := range p.y {
		yf[i] = float64(v)
	}
	for i := range p.cb {
		cbf[i], crf[i] = float64(p.cb[i]), float64(p.cr[i])
	}
	best, bestErr := p, reconstructionError(rgb, stride, p)
	dcb := make([]float64, len(cbf))
	dcr := make([]float64, len(crf))
	for it := 0; it < sharpIterations; it++ {
		clear(dcb)
		clear(dcr)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				r, g, b := toRGB(yf[i], upsample(cbf, p.cw, p.ch, x, y), upsample(crf, p.cw, p.ch, x, y))
				o := y*stride + 3*x
				er, eg, eb := float64(rgb[o])-r, float64(rgb[o+1])-g, float64(rgb[o+2])-b
				yf[i] = clamp255(yf[i] + (er+eg+eb)/3)
				ci := (y/2)*p.cw + x/2
				dcb[ci] += -0.168736*er - 0.331264*eg + 0.5*eb
				dcr[ci] += 0.5*er - 0.418688*eg - 0.081312*eb
			}
		}
		for cy := 0; cy < p.ch; cy++ {
			for cx := 0; cx < p.cw; cx++ {
				n := float64((min(2*cx+2, w) - 2*cx) * (min(2*cy+2, h) - 2*cy))
				ci := cy*p.cw + cx
				cbf[ci] = clamp255(cbf[ci] + dcb[ci]/n)
				crf[ci] = clamp255(crf[ci] + dcr[ci]/n)
			}
		}
		q := &planes{w: w, h: h, cw: p.cw, ch: p.ch, y: round(yf), cb: round(cbf), cr: round(crf)}
		if e := reconstructionError(rgb, stride, q); e < bestErr {
			best, bestErr = q, e
		}
	}
	return best
}

func round(f []float64) []byte {
	b := make([]byte, len(f))
	for i, v := range f {
		b[i] = uint8(math.Round(clamp255(v)))
	}
	return b
}
