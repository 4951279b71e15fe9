package jpegenc

import (
	"github.com/dlecorfec/jpegenc/internal/codec"
)

type samplingFactor struct {
	h, v [3]int
}

var chromaSubsamplings = map[string]samplingFactor{
	"444": {h: [3]int{1, 1, 1}, v: [3]int{1, 1, 1}},
	"420": {h: [3]int{2, 1, 1}, v: [3]int{2, 1, 1}},
	"422": {h: [3]int{2, 1, 1}, v: [3]int{1, 1, 1}},
	"440": {h: [3]int{1, 1, 1}, v: [3]int{2, 1, 1}},
}

// samplingFactors returns the per-component factors of a subsampling mode.
func samplingFactors(name string) (h, v [3]int, ok bool) {
	f, ok := chromaSubsamplings[name]
	return f.h, f.v, ok
}

func setChromaSubsampling(c *codec.Compressor, name string) error {
	h, v, ok := samplingFactors(name)
	if !ok {
		return newError(ErrInvalidParameter, "unknown chroma subsampling %q", name)
	}
	for i := 0; i < 3; i++ {
		c.CompInfo[i].HSampFactor = h[i]
		c.CompInfo[i].VSampFactor = v[i]
	}
	return nil
}
