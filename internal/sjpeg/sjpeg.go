// Package sjpeg is a one-shot JPEG encoder working from RGB samples. It does
// its own YCbCr conversion, supports fractional qualities and can search for
// the quality that hits a target file size.
package sjpeg

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/dlecorfec/jpegenc/internal/codec"
	"github.com/dlecorfec/jpegenc/internal/markers"
)

// Encode compresses a w x h RGB image whose rows are stride bytes apart.
func Encode(rgb []byte, w, h, stride int, param EncoderParam) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("sjpeg: invalid dimensions %dx%d", w, h)
	}
	if stride < 3*w || len(rgb) < stride*(h-1)+3*w {
		return nil, errors.Errorf("sjpeg: buffer of %d bytes with stride %d too small for %dx%d", len(rgb), stride, w, h)
	}
	p := toPlanes(rgb, w, h, stride, param.YUVMode)
	if param.TargetMode != TargetSize || param.TargetValue <= 0 {
		return encodePlanes(p, param.Quality, &param)
	}
	return searchSize(p, &param)
}

// scaleFactor is the libjpeg quality curve on a continuous scale.
func scaleFactor(q float64) float64 {
	q = math.Max(1, math.Min(100, q))
	if q < 50 {
		return 5000 / q
	}
	return 200 - 2*q
}

func scaledTable(which int, quality float64) [64]uint16 {
	basic := codec.StdQuantTable(which)
	s := scaleFactor(quality)
	var t [64]uint16
	for i, b := range basic {
		t[i] = uint16(math.Max(1, math.Min(255, math.Floor(float64(b)*s/100+0.5))))
	}
	return t
}

func encodePlanes(p *planes, quality float64, param *EncoderParam) ([]byte, error) {
	c := codec.NewCompressor()
	defer c.Destroy()
	c.Log = param.log()
	c.MemDest()
	c.ImageWidth, c.ImageHeight = p.w, p.h
	c.InputComponents, c.InColorSpace = 3, codec.YCbCr
	if err := c.SetDefaults(); err != nil {
		return nil, err
	}
	if !p.subsampled() {
		c.CompInfo[0].HSampFactor, c.CompInfo[0].VSampFactor = 1, 1
	}
	c.RawDataIn = true
	c.OptimizeCoding = param.Optimize
	for slot := 0; slot < 2; slot++ {
		t := scaledTable(slot, quality)
		if err := c.AddQuantTable(slot, &t, 100, true); err != nil {
			return nil, err
		}
	}
	if err := c.StartCompress(true); err != nil {
		return nil, err
	}
	if len(param.Iccp) > 0 {
		if err := markers.WriteICCProfile(c, param.Iccp); err != nil {
			return nil, err
		}
	}
	if len(param.Exif) > 0 {
		if err := markers.WriteExif(c, param.Exif); err != nil {
			return nil, err
		}
	}
	err := c.WriteRawData([][]byte{p.y, p.cb, p.cr}, []int{p.w, p.cw, p.cw})
	if err != nil {
		return nil, err
	}
	if err := c.FinishCompress(); err != nil {
		return nil, err
	}
	return bytes.Clone(c.Bytes()), nil
}

// searchSize bisects the quality range, starting from param.Quality, until
// the output is within Tolerance percent of TargetValue or the passes run
// out. The encode closest to the target is returned.
func searchSize(p *planes, param *EncoderParam) ([]byte, error) {
	log := param.log()
	target := float64(param.TargetValue)
	tolerance := target * param.Tolerance / 100
	passes := max(param.Passes, 1)

	lowQ, highQ := 0.0, 100.0
	q := math.Max(lowQ, math.Min(highQ, param.Quality))
	var (
		best     []byte
		bestDist = math.Inf(1)
	)
	for pass := 1; pass <= passes; pass++ {
		out, err := encodePlanes(p, q, param)
		if err != nil {
			return nil, err
		}
		size := float64(len(out))
		dist := math.Abs(size - target)
		log.Debugf("sjpeg: pass %d quality %.3f size %d target %d", pass, q, len(out), param.TargetValue)
		if dist < bestDist {
			best, bestDist = out, dist
		}
		if dist <= tolerance {
			break
		}
		if size > target {
			highQ = q
		} else {
			lowQ = q
		}
		if highQ-lowQ < 1e-3 {
			break
		}
		q = (lowQ + highQ) / 2
	}
	return best, nil
}
