package jpegenc

import (
	"golang.org/x/exp/slices"

	"github.com/dlecorfec/jpegenc/internal/codec"
)

func scan(comps []int, ss, se, ah, al int) codec.ScanInfo {
	s := codec.ScanInfo{CompsInScan: len(comps), Ss: ss, Se: se, Ah: ah, Al: al}
	copy(s.ComponentIndex[:], comps)
	return s
}

var (
	compY   = []int{0}
	compCb  = []int{1}
	compCr  = []int{2}
	compAll = []int{0, 1, 2}
)

// scanScripts are the progressive scripts selected by the progressive
// option, ids 1 to 6.
var scanScripts = [...][]codec.ScanInfo{
	// Spectral selection only, one component per scan.
	{
		scan(compY, 0, 0, 0, 0),
		scan(compCb, 0, 0, 0, 0),
		scan(compCr, 0, 0, 0, 0),
		scan(compY, 1, 8, 0, 0),
		scan(compY, 9, 63, 0, 0),
		scan(compCb, 1, 63, 0, 0),
		scan(compCr, 1, 63, 0, 0),
	},
	{
		scan(compY, 0, 0, 0, 0),
		scan(compCb, 0, 0, 0, 0),
		scan(compCr, 0, 0, 0, 0),
		scan(compY, 1, 2, 0, 1),
		scan(compY, 3, 63, 0, 1),
		scan(compY, 1, 63, 1, 0),
		scan(compCb, 1, 63, 0, 0),
		scan(compCr, 1, 63, 0, 0),
	},
	{
		scan(compY, 0, 0, 0, 0),
		scan(compCb, 0, 0, 0, 0),
		scan(compCr, 0, 0, 0, 0),
		scan(compY, 1, 63, 0, 2),
		scan(compY, 1, 63, 2, 1),
		scan(compY, 1, 63, 1, 0),
		scan(compCb, 1, 63, 0, 0),
		scan(compCr, 1, 63, 0, 0),
	},
	{
		scan(compAll, 0, 0, 0, 1),
		scan(compY, 1, 5, 0, 2),
		scan(compCr, 1, 63, 0, 1),
		scan(compCb, 1, 63, 0, 1),
		scan(compY, 6, 63, 0, 2),
		scan(compY, 1, 63, 2, 1),
		scan(compAll, 0, 0, 1, 0),
		scan(compCr, 1, 63, 1, 0),
		scan(compCb, 1, 63, 1, 0),
		scan(compY, 1, 63, 1, 0),
	},
	{
		scan(compAll, 0, 0, 0, 1),
		scan(compY, 1, 5, 0, 2),
		scan(compCb, 1, 5, 0, 2),
		scan(compCr, 1, 5, 0, 2),
		scan(compCb, 6, 63, 0, 2),
		scan(compCr, 6, 63, 0, 2),
		scan(compY, 6, 63, 0, 2),
		scan(compY, 1, 63, 2, 1),
		scan(compCb, 1, 63, 2, 1),
		scan(compCr, 1, 63, 2, 1),
		scan(compAll, 0, 0, 1, 0),
		scan(compY, 1, 63, 1, 0),
		scan(compCb, 1, 63, 1, 0),
		scan(compCr, 1, 63, 1, 0),
	},
	// Interleaved DC, then every component split at coefficient 3 with
	// three successive approximation stages.
	{
		scan(compAll, 0, 0, 0, 0),
		scan(compY, 1, 2, 0, 0),
		scan(compCb, 1, 2, 0, 0),
		scan(compCr, 1, 2, 0, 0),
		scan(compY, 3, 63, 0, 2),
		scan(compCb, 3, 63, 0, 2),
		scan(compCr, 3, 63, 0, 2),
		scan(compY, 3, 63, 2, 1),
		scan(compCb, 3, 63, 2, 1),
		scan(compCr, 3, 63, 2, 1),
		scan(compY, 3, 63, 1, 0),
		scan(compCb, 3, 63, 1, 0),
		scan(compCr, 3, 63, 1, 0),
	},
}

// NumScripts is the number of scripts in the catalog.
const NumScripts = len(scanScripts)

// Script returns a copy of the progressive script with the given id, from 1
// to NumScripts.
func Script(id int) ([]codec.ScanInfo, error) {
	if id < 1 || id > NumScripts {
		return nil, newError(ErrInvalidParameter, "unknown jpeg scan script id %d", id)
	}
	return slices.Clone(scanScripts[id-1]), nil
}

// FilterScanComponents adapts a script written for three components to an
// image with fewer: component indices past inputComponents are dropped and
// scans left without components are removed.
func FilterScanComponents(script []codec.ScanInfo, inputComponents int) []codec.ScanInfo {
	out := make([]codec.ScanInfo, 0, len(script))
	for _, s := range script {
		n := 0
		for _, ci := range s.ComponentIndex[:s.CompsInScan] {
			if ci < inputComponents {
				s.ComponentIndex[n] = ci
				n++
			}
		}
		if n == 0 {
			continue
		}
		for j := n; j < len(s.ComponentIndex); j++ {
			s.ComponentIndex[j] = 0
		}
		s.CompsInScan = n
		out = append(out, s)
	}
	return out
}

// setProgression installs the scan script for a progressive id: negative
// ids keep the image sequential and 0 selects the codec's own progression.
func setProgression(c *codec.Compressor, id int) error {
	switch {
	case id < 0:
		return nil
	case id == 0:
		return codecError(c.SimpleProgression())
	}
	script, err := Script(id)
	if err != nil {
		return err
	}
	c.ScanInfo = FilterScanComponents(script, c.InputComponents)
	return nil
}
