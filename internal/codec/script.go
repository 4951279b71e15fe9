package codec

import (
	"github.com/pkg/errors"
)

func dcScans(ncomps, ah, al int) []ScanInfo {
	if ncomps <= MaxCompsInScan {
		s := ScanInfo{CompsInScan: ncomps, Ah: ah, Al: al}
		for i := 0; i < ncomps; i++ {
			s.ComponentIndex[i] = i
		}
		return []ScanInfo{s}
	}
	return componentScans(ncomps, 0, 0, ah, al)
}

func componentScans(ncomps, ss, se, ah, al int) []ScanInfo {
	scans := make([]ScanInfo, 0, ncomps)
	for i := 0; i < ncomps; i++ {
		scans = append(scans, acScan(i, ss, se, ah, al))
	}
	return scans
}

func acScan(ci, ss, se, ah, al int) ScanInfo {
	return ScanInfo{CompsInScan: 1, ComponentIndex: [MaxCompsInScan]int{ci}, Ss: ss, Se: se, Ah: ah, Al: al}
}

// SimpleProgression installs the default progressive script for the
// current JPEG color space.
func (c *Compressor) SimpleProgression() error {
	if err := c.requireState(stateStart); err != nil {
		return err
	}
	n := c.NumComponents
	var scans []ScanInfo
	if n == 3 && c.JPEGColorSpace == YCbCr {
		// Luma gets most of the scans; chroma is small enough to go in
		// one AC scan per bit plane.
		scans = append(scans, dcScans(n, 0, 1)...)
		scans = append(scans,
			acScan(0, 1, 5, 0, 2),
			acScan(2, 1, 63, 0, 1),
			acScan(1, 1, 63, 0, 1),
			acScan(0, 6, 63, 0, 2),
			acScan(0, 1, 63, 2, 1),
		)
		scans = append(scans, dcScans(n, 1, 0)...)
		scans = append(scans,
			acScan(2, 1, 63, 1, 0),
			acScan(1, 1, 63, 1, 0),
			acScan(0, 1, 63, 1, 0),
		)
	} else {
		scans = append(scans, dcScans(n, 0, 1)...)
		scans = append(scans, componentScans(n, 1, 5, 0, 2)...)
		scans = append(scans, componentScans(n, 6, 63, 0, 2)...)
		scans = append(scans, componentScans(n, 1, 63, 2, 1)...)
		scans = append(scans, dcScans(n, 1, 0)...)
		scans = append(scans, componentScans(n, 1, 63, 1, 0)...)
	}
	c.ScanInfo = scans
	return nil
}

// validateScript checks the scan script for consistency, selects
// progressive mode and sets the effective scan list.
func (c *Compressor) validateScript() error {
	if c.ScanInfo == nil {
		c.progressive = false
		s := ScanInfo{CompsInScan: c.NumComponents, Se: blockSize - 1}
		for i := 0; i < c.NumComponents; i++ {
			s.ComponentIndex[i] = i
		}
		if c.NumComponents > MaxCompsInScan {
			c.scans = componentScans(c.NumComponents, 0, blockSize-1, 0, 0)
		} else {
			c.scans = []ScanInfo{s}
		}
		return c.checkMCUSizes()
	}
	if len(c.ScanInfo) == 0 {
		return errors.New("codec: empty scan script")
	}

	first := c.ScanInfo[0]
	c.progressive = first.Ss != 0 || first.Se != blockSize-1

	var (
		lastBitpos [MaxComponents][blockSize]int
		sent       [MaxComponents]bool
	)
	for ci := range lastBitpos {
		for k := range lastBitpos[ci] {
			lastBitpos[ci][k] = -1
		}
	}

	for n, s := range c.ScanInfo {
		if s.CompsInScan <= 0 || s.CompsInScan > MaxCompsInScan {
			return errors.Errorf("codec: scan %d: bogus number of components %d", n, s.CompsInScan)
		}
		for i := 0; i < s.CompsInScan; i++ {
			ci := s.ComponentIndex[i]
			if ci < 0 || ci >= c.NumComponents {
				return errors.Errorf("codec: scan %d: bogus component index %d", n, ci)
			}
			if i > 0 && ci <= s.ComponentIndex[i-1] {
				return errors.Errorf("codec: scan %d: component indices must increase", n)
			}
		}
		if c.progressive {
			if s.Ss < 0 || s.Ss >= blockSize || s.Se < s.Ss || s.Se >= blockSize ||
				s.Ah < 0 || s.Ah > maxAhAl || s.Al < 0 || s.Al > maxAhAl {
				return errors.Errorf("codec: scan %d: invalid progressive parameters Ss=%d Se=%d Ah=%d Al=%d", n, s.Ss, s.Se, s.Ah, s.Al)
			}
			if s.Ss == 0 {
				if s.Se != 0 {
					return errors.Errorf("codec: scan %d: DC and AC coefficients in one progressive scan", n)
				}
			} else if s.CompsInScan != 1 {
				return errors.Errorf("codec: scan %d: AC scans must have a single component", n)
			}
			for i := 0; i < s.CompsInScan; i++ {
				last := &lastBitpos[s.ComponentIndex[i]]
				if s.Ss != 0 && last[0] < 0 {
					return errors.Errorf("codec: scan %d: AC scan before the DC scan of component %d", n, s.ComponentIndex[i])
				}
				for k := s.Ss; k <= s.Se; k++ {
					if last[k] < 0 {
						if s.Ah != 0 {
							return errors.Errorf("codec: scan %d: refinement of coefficient %d not yet sent", n, k)
						}
					} else if s.Ah != last[k] || s.Al != s.Ah-1 {
						return errors.Errorf("codec: scan %d: bad successive approximation for coefficient %d", n, k)
					}
					last[k] = s.Al
				}
			}
		} else {
			if s.Ss != 0 || s.Se != blockSize-1 || s.Ah != 0 || s.Al != 0 {
				return errors.Errorf("codec: scan %d: sequential scans must cover 0..63 without approximation", n)
			}
			for i := 0; i < s.CompsInScan; i++ {
				ci := s.ComponentIndex[i]
				if sent[ci] {
					return errors.Errorf("codec: scan %d: component %d sent twice", n, ci)
				}
				sent[ci] = true
			}
		}
	}

	for ci := 0; ci < c.NumComponents; ci++ {
		if c.progressive && lastBitpos[ci][0] < 0 || !c.progressive && !sent[ci] {
			return errors.Errorf("codec: component %d missing from the scan script", ci)
		}
	}
	c.scans = append([]ScanInfo(nil), c.ScanInfo...)
	return c.checkMCUSizes()
}

// checkMCUSizes rejects interleaved scans with too many blocks per MCU.
func (c *Compressor) checkMCUSizes() error {
	for n, s := range c.scans {
		if s.CompsInScan == 1 {
			continue
		}
		blocks := 0
		for i := 0; i < s.CompsInScan; i++ {
			comp := &c.CompInfo[s.ComponentIndex[i]]
			blocks += comp.HSampFactor * comp.VSampFactor
		}
		if blocks > maxBlocksInMCU {
			return errors.Errorf("codec: scan %d: %d blocks per MCU exceed %d", n, blocks, maxBlocksInMCU)
		}
	}
	return nil
}
