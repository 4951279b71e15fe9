package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

// gradient returns interleaved samples of a smooth test pattern.
func gradient(w, h, n int) []byte {
	pix := make([]byte, w*h*n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * n
			pix[i] = uint8(x * 255 / max(w-1, 1))
			if n == 3 {
				pix[i+1] = uint8(y * 255 / max(h-1, 1))
				pix[i+2] = uint8((x + y) * 127 / max(w+h-2, 1))
			}
		}
	}
	return pix
}

type setup func(c *Compressor) error

func compress(t *testing.T, w, h, n int, pix []byte, configure setup) []byte {
	t.Helper()
	c := NewCompressor()
	defer c.Destroy()
	c.MemDest()
	c.ImageWidth, c.ImageHeight, c.InputComponents = w, h, n
	c.InColorSpace = RGB
	if n == 1 {
		c.InColorSpace = Grayscale
	}
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	if configure != nil {
		if err := configure(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.StartCompress(true); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		row := pix[y*w*n : (y+1)*w*n]
		if _, err := c.WriteScanlines([][]byte{row}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.FinishCompress(); err != nil {
		t.Fatal(err)
	}
	return append([]byte(nil), c.Bytes()...)
}

// meanDiff decodes data and returns the mean absolute difference per
// sample against pix.
func meanDiff(t *testing.T, data []byte, w, h, n int, pix []byte) float64 {
	t.Helper()
	m, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := m.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("decoded size %v, want %dx%d", b.Size(), w, h)
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * n
			if n == 1 {
				g := color.GrayModel.Convert(m.At(x, y)).(color.Gray)
				sum += abs(int(g.Y) - int(pix[i]))
				continue
			}
			r, g, b, _ := m.At(x, y).RGBA()
			sum += abs(int(r>>8)-int(pix[i])) + abs(int(g>>8)-int(pix[i+1])) + abs(int(b>>8)-int(pix[i+2]))
		}
	}
	return sum / float64(w*h*n)
}

func abs(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

func countMarkers(data []byte, marker byte) int {
	n := 0
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xff && data[i+1] == marker {
			n++
		}
	}
	return n
}

func TestRoundTrip(t *testing.T) {
	quality := func(q int) setup {
		return func(c *Compressor) error { return c.SetQuality(q, true) }
	}
	tests := []struct {
		name      string
		w, h, n   int
		configure setup
		sof       byte
	}{
		{"gray", 33, 17, 1, quality(95), sof0Marker},
		{"gray 1x1", 1, 1, 1, nil, sof0Marker},
		{"ycbcr 420", 37, 21, 3, quality(95), sof0Marker},
		{"ycbcr 444 optimized", 16, 16, 3, func(c *Compressor) error {
			for i := 0; i < 3; i++ {
				c.CompInfo[i].HSampFactor, c.CompInfo[i].VSampFactor = 1, 1
			}
			c.OptimizeCoding = true
			return c.SetQuality(95, true)
		}, sof0Marker},
		{"ycbcr 422", 19, 9, 3, func(c *Compressor) error {
			c.CompInfo[0].HSampFactor, c.CompInfo[0].VSampFactor = 2, 1
			return c.SetQuality(95, true)
		}, sof0Marker},
		{"rgb", 23, 11, 3, func(c *Compressor) error {
			if err := c.SetColorspace(RGB); err != nil {
				return err
			}
			return c.SetQuality(95, true)
		}, sof0Marker},
		{"progressive ycbcr", 41, 29, 3, func(c *Compressor) error {
			if err := c.SetQuality(95, true); err != nil {
				return err
			}
			return c.SimpleProgression()
		}, sof2Marker},
		{"progressive gray", 30, 30, 1, func(c *Compressor) error {
			if err := c.SetQuality(95, true); err != nil {
				return err
			}
			return c.SimpleProgression()
		}, sof2Marker},
		{"progressive rgb", 17, 40, 3, func(c *Compressor) error {
			if err := c.SetColorspace(RGB); err != nil {
				return err
			}
			if err := c.SetQuality(95, true); err != nil {
				return err
			}
			return c.SimpleProgression()
		}, sof2Marker},
		{"extended sequential", 16, 8, 1, func(c *Compressor) error {
			return c.SetQuality(1, false)
		}, sof1Marker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix := gradient(tt.w, tt.h, tt.n)
			data := compress(t, tt.w, tt.h, tt.n, pix, tt.configure)
			if !bytes.HasPrefix(data, []byte{0xff, soiMarker}) || !bytes.HasSuffix(data, []byte{0xff, eoiMarker}) {
				t.Fatalf("missing SOI/EOI")
			}
			if got := countMarkers(data, tt.sof); got != 1 {
				t.Errorf("found %d SOF 0x%02x markers, want 1", got, tt.sof)
			}
			if tt.sof == sof1Marker {
				// Too coarse to compare pixels.
				return
			}
			if d := meanDiff(t, data, tt.w, tt.h, tt.n, pix); d > 6 {
				t.Errorf("mean difference %.2f too large", d)
			}
		})
	}
}

func TestProgressiveScanCount(t *testing.T) {
	pix := gradient(24, 24, 3)
	data := compress(t, 24, 24, 3, pix, func(c *Compressor) error { return c.SimpleProgression() })
	if got := countMarkers(data, sosMarker); got != 10 {
		t.Errorf("got %d SOS markers, want 10", got)
	}
	gray := gradient(24, 24, 1)
	data = compress(t, 24, 24, 1, gray, func(c *Compressor) error { return c.SimpleProgression() })
	if got := countMarkers(data, sosMarker); got != 6 {
		t.Errorf("got %d SOS markers, want 6", got)
	}
}

func TestMarkerOrder(t *testing.T) {
	pix := gradient(8, 8, 3)
	c := NewCompressor()
	defer c.Destroy()
	c.MemDest()
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 8, 8, 3, RGB
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartCompress(true); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteMarker(APP0+2, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		if _, err := c.WriteScanlines([][]byte{pix[y*24 : (y+1)*24]}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.FinishCompress(); err != nil {
		t.Fatal(err)
	}
	data := c.Bytes()
	jfif := bytes.Index(data, []byte("JFIF\x00"))
	app := bytes.Index(data, []byte{0xff, APP0 + 2, 0, 7, 'h'})
	dqt := bytes.Index(data, []byte{0xff, dqtMarker})
	if !(jfif > 0 && jfif < app && app < dqt) {
		t.Errorf("unexpected marker order: JFIF %d, APP2 %d, DQT %d", jfif, app, dqt)
	}
}

func TestLifecycle(t *testing.T) {
	c := NewCompressor()
	c.MemDest()
	if err := c.WriteMarkerHeader(APP0+1, 4); err == nil || !strings.Contains(err.Error(), "state start") {
		t.Errorf("marker before StartCompress: got %v", err)
	}
	if _, err := c.WriteScanlines(nil); err == nil {
		t.Error("scanlines before StartCompress succeeded")
	}
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 8, 8, 1, Grayscale
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartCompress(true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetQuality(50, true); err == nil {
		t.Error("SetQuality after StartCompress succeeded")
	}
	if err := c.WriteMarkerHeader(APP0+1, maxMarkerLength+1); err == nil {
		t.Error("oversized marker accepted")
	}
	if err := c.WriteMarkerHeader(APP0+1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := c.WriteScanlines([][]byte{make([]byte, 8)}); err == nil {
		t.Error("scanline with an incomplete marker succeeded")
	}
	if err := c.WriteMarkerByte(0); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteMarkerByte(0); err == nil {
		t.Error("marker byte past the declared length accepted")
	}
	if err := c.FinishCompress(); err == nil {
		t.Error("FinishCompress without scanlines succeeded")
	}
	if err := c.Abort(); err != nil {
		t.Fatal(err)
	}
	if got := c.State(); got != stateStart {
		t.Errorf("state after Abort = %s", got)
	}
	c.Destroy()
	c.Destroy()
	if got := c.State(); got != "destroyed" {
		t.Errorf("state after Destroy = %s", got)
	}
	if err := c.SetQuality(50, true); err == nil {
		t.Error("SetQuality after Destroy succeeded")
	}
}

func TestValidateScript(t *testing.T) {
	dc := func(al int) ScanInfo {
		return ScanInfo{CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}, Al: al}
	}
	tests := []struct {
		name    string
		scans   []ScanInfo
		wantErr string
	}{
		{"empty", []ScanInfo{}, "empty scan script"},
		{"AC before DC", []ScanInfo{acScan(0, 1, 63, 0, 0), dc(0)}, "AC scan before the DC scan"},
		{"interleaved AC", []ScanInfo{dc(0), {CompsInScan: 2, ComponentIndex: [4]int{0, 1}, Ss: 1, Se: 63}}, "single component"},
		{"DC with AC", []ScanInfo{dc(0), {CompsInScan: 1, Ss: 0, Se: 5}}, "DC and AC"},
		{"bad ladder", []ScanInfo{dc(2), {CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}, Ah: 2, Al: 0}}, "successive approximation"},
		{"refine unsent", []ScanInfo{dc(0), acScan(0, 1, 63, 1, 0)}, "not yet sent"},
		{"decreasing components", []ScanInfo{{CompsInScan: 2, ComponentIndex: [4]int{1, 0}}}, "must increase"},
		{"Se out of range", []ScanInfo{dc(0), acScan(0, 1, 64, 0, 0)}, "invalid progressive parameters"},
		{"Al too large", []ScanInfo{dc(11)}, "invalid progressive parameters"},
		{"missing component", []ScanInfo{{CompsInScan: 1, ComponentIndex: [4]int{0}, Se: 0}}, "missing"},
		{"sequential twice", []ScanInfo{
			{CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}, Se: 63},
			{CompsInScan: 1, ComponentIndex: [4]int{0}, Se: 63},
		}, "sent twice"},
		{"sequential partial band", []ScanInfo{
			{CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}, Se: 63},
			{CompsInScan: 1, ComponentIndex: [4]int{1}, Ss: 1, Se: 63},
		}, "sequential scans"},
		{"valid progressive", []ScanInfo{dc(1), acScan(0, 1, 63, 0, 0), acScan(1, 1, 63, 0, 0), acScan(2, 1, 63, 0, 0), {CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}, Ah: 1}}, ""},
		{"valid sequential per component", []ScanInfo{
			{CompsInScan: 1, ComponentIndex: [4]int{0}, Se: 63},
			{CompsInScan: 2, ComponentIndex: [4]int{1, 2}, Se: 63},
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompressor()
			defer c.Destroy()
			c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 8, 8, 3, RGB
			if err := c.SetDefaults(); err != nil {
				t.Fatal(err)
			}
			c.ScanInfo = tt.scans
			err := c.validateScript()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMCUTooLarge(t *testing.T) {
	c := NewCompressor()
	defer c.Destroy()
	c.MemDest()
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 64, 64, 3, RGB
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	c.CompInfo[0].HSampFactor, c.CompInfo[0].VSampFactor = 4, 4
	if err := c.StartCompress(true); err == nil || !strings.Contains(err.Error(), "blocks per MCU") {
		t.Fatalf("got %v", err)
	}
}

func TestFractionalSampling(t *testing.T) {
	c := NewCompressor()
	defer c.Destroy()
	c.MemDest()
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 64, 64, 3, RGB
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	c.CompInfo[0].HSampFactor = 3
	c.CompInfo[1].HSampFactor = 2
	if err := c.StartCompress(true); err == nil {
		t.Fatal("fractional sampling accepted")
	}
}

func TestQualityScaling(t *testing.T) {
	for _, tt := range []struct{ q, want int }{
		{-5, 5000}, {0, 5000}, {1, 5000}, {10, 500}, {49, 102}, {50, 100}, {75, 50}, {90, 20}, {100, 0}, {150, 0},
	} {
		if got := QualityScaling(tt.q); got != tt.want {
			t.Errorf("QualityScaling(%d) = %d, want %d", tt.q, got, tt.want)
		}
	}
}

func TestAddQuantTableClamps(t *testing.T) {
	c := NewCompressor()
	defer c.Destroy()
	basic := StdQuantTable(0)
	if err := c.AddQuantTable(2, &basic, 5000, true); err != nil {
		t.Fatal(err)
	}
	for _, v := range c.QuantTbls[2].Val {
		if v < 1 || v > 255 {
			t.Fatalf("baseline table entry %d", v)
		}
	}
	if err := c.AddQuantTable(2, &basic, 0, false); err != nil {
		t.Fatal(err)
	}
	for _, v := range c.QuantTbls[2].Val {
		if v != 1 {
			t.Fatalf("zero scale gave entry %d, want 1", v)
		}
	}
	if err := c.AddQuantTable(NumQuantTbls, &basic, 100, true); err == nil {
		t.Error("bogus slot accepted")
	}
}

func TestGenOptimalTableLimit(t *testing.T) {
	// Fibonacci frequencies produce a maximally skewed tree.
	var freq [257]int64
	a, b := int64(1), int64(1)
	for i := 0; i < 25; i++ {
		freq[i] = a
		a, b = b, a+b
	}
	tbl, err := genOptimalTable(&freq)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	kraft := 0.0
	for l, n := range tbl.Count {
		total += int(n)
		kraft += float64(n) / float64(uint(1)<<uint(l+1))
	}
	if total != 25 || len(tbl.Value) != 25 {
		t.Fatalf("table codes %d symbols (%d values), want 25", total, len(tbl.Value))
	}
	if kraft >= 1 {
		t.Errorf("Kraft sum %v leaves no reserved code", kraft)
	}
	var lut huffmanLUT
	if err := lut.init(tbl); err != nil {
		t.Fatal(err)
	}
}

func TestRawDataIn(t *testing.T) {
	const w, h = 20, 10
	c := NewCompressor()
	defer c.Destroy()
	c.MemDest()
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = w, h, 3, YCbCr
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	c.RawDataIn = true
	if err := c.SetQuality(95, true); err != nil {
		t.Fatal(err)
	}
	if err := c.StartCompress(true); err != nil {
		t.Fatal(err)
	}
	y := bytes.Repeat([]byte{200}, w*h)
	cw, ch := (w+1)/2, (h+1)/2
	cb := bytes.Repeat([]byte{128}, cw*ch)
	cr := bytes.Repeat([]byte{128}, cw*ch)
	if err := c.WriteRawData([][]byte{y, cb, cr}, []int{w, cw, cw}); err != nil {
		t.Fatal(err)
	}
	if err := c.FinishCompress(); err != nil {
		t.Fatal(err)
	}
	m, err := jpeg.Decode(bytes.NewReader(c.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	ycc, ok := m.(*image.YCbCr)
	if !ok {
		t.Fatalf("decoded %T, want *image.YCbCr", m)
	}
	if got := ycc.Y[ycc.YOffset(w-1, h-1)]; got < 197 || got > 203 {
		t.Errorf("Y = %d, want about 200", got)
	}
}

func TestSetDest(t *testing.T) {
	var buf bytes.Buffer
	c := NewCompressor()
	defer c.Destroy()
	c.SetDest(&buf)
	c.ImageWidth, c.ImageHeight, c.InputComponents, c.InColorSpace = 8, 8, 1, Grayscale
	if err := c.SetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := c.StartCompress(true); err != nil {
		t.Fatal(err)
	}
	rows := make([][]byte, 8)
	for i := range rows {
		rows[i] = make([]byte, 8)
	}
	if n, err := c.WriteScanlines(rows); err != nil || n != 8 {
		t.Fatalf("WriteScanlines = %d, %v", n, err)
	}
	if err := c.FinishCompress(); err != nil {
		t.Fatal(err)
	}
	if c.Bytes() != nil {
		t.Error("Bytes should be nil without a memory destination")
	}
	if _, err := jpeg.Decode(&buf); err != nil {
		t.Fatal(err)
	}
}
