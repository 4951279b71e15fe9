package jpegenc

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/jpeg"
	"math"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/dlecorfec/jpegenc/internal/exif"
	"github.com/dlecorfec/jpegenc/internal/jpegseg"
)

// packedFile returns a one-frame file whose samples come from f.
func packedFile(w, h, channels int, f func(x, y, c int) byte) *PackedPixelFile {
	img := NewPackedImage(w, h, PixelFormat{NumChannels: channels, DataType: TypeUint8})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				img.Pixels[y*img.Stride+x*channels+c] = f(x, y, c)
			}
		}
	}
	return &PackedPixelFile{
		Info:   BasicInfo{XSize: w, YSize: h, NumColorChannels: channels, BitsPerSample: 8},
		Frames: []PackedFrame{{Color: img}},
	}
}

func gradient(x, y, c int) byte {
	return byte(x*3 + y*2 + c*40)
}

func encodeFile(t *testing.T, ppf *PackedPixelFile, opts map[string]string) []byte {
	t.Helper()
	e := NewEncoder()
	for k, v := range opts {
		e.SetOption(k, v)
	}
	out, err := e.Encode(context.Background(), ppf, nil)
	require.NoError(t, err)
	require.Len(t, out.Bitstreams, len(ppf.Frames))
	return out.Bitstreams[0]
}

func parse(t *testing.T, b []byte) []jpegseg.Segment {
	t.Helper()
	segs, err := jpegseg.Parse(b)
	require.NoError(t, err)
	require.Equal(t, byte(jpegseg.SOI), segs[0].Marker)
	require.Equal(t, byte(jpegseg.EOI), segs[len(segs)-1].Marker)
	return segs
}

func psnr(t *testing.T, b []byte, ppf *PackedPixelFile) float64 {
	t.Helper()
	m, err := jpeg.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	src := ppf.Frames[0].Color
	n := src.Format.NumChannels
	var se float64
	for y := 0; y < src.YSize; y++ {
		for x := 0; x < src.XSize; x++ {
			r, g, bb, _ := m.At(x, y).RGBA()
			got := []uint32{r >> 8, g >> 8, bb >> 8}
			for c := 0; c < n; c++ {
				d := float64(got[c]) - float64(src.Pixels[y*src.Stride+x*n+c])
				se += d * d
			}
		}
	}
	mse := se / float64(src.XSize*src.YSize*n)
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(255*255/mse)
}

func TestBaselineRGB(t *testing.T) {
	red := func(x, y, c int) byte {
		if c == 0 {
			return 255
		}
		return 0
	}
	ppf := packedFile(16, 16, 3, red)
	b := encodeFile(t, ppf, map[string]string{"q": "90"})
	segs := parse(t, b)
	require.Equal(t, 1, jpegseg.Count(segs, jpegseg.SOF0))
	require.Equal(t, 1, jpegseg.Count(segs, jpegseg.SOS))

	m, err := jpeg.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 16, 16), m.Bounds())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r, g, bb, _ := m.At(x, y).RGBA()
			require.InDelta(t, 255, r>>8, 2)
			require.InDelta(t, 0, g>>8, 2)
			require.InDelta(t, 0, bb>>8, 2)
		}
	}
}

func TestProgressiveGray(t *testing.T) {
	ppf := packedFile(8, 8, 1, func(x, y, c int) byte { return 0 })
	segs := parse(t, encodeFile(t, ppf, map[string]string{"progressive": "1"}))
	require.Equal(t, 1, jpegseg.Count(segs, jpegseg.SOF2))
	require.Equal(t, 3, jpegseg.Count(segs, jpegseg.SOS))
}

func TestScanScripts(t *testing.T) {
	for _, channels := range []int{1, 3} {
		ppf := packedFile(40, 24, channels, gradient)
		for id := 1; id <= NumScripts; id++ {
			script, err := Script(id)
			require.NoError(t, err)
			want := FilterScanComponents(script, channels)

			b := encodeFile(t, ppf, map[string]string{"progressive": strconv.Itoa(id)})
			segs := parse(t, b)
			f, err := jpegseg.Frame(segs)
			require.NoError(t, err)
			require.Equal(t, byte(jpegseg.SOF2), f.Marker)
			scans, err := jpegseg.Scans(segs)
			require.NoError(t, err)
			require.Len(t, scans, len(want), "script %d, %d channels", id, channels)
			for i, s := range scans {
				w := want[i]
				require.Equal(t, [4]int{w.Ss, w.Se, w.Ah, w.Al}, [4]int{s.Ss, s.Se, s.Ah, s.Al})
				require.Len(t, s.Components, w.CompsInScan)
				for j, c := range s.Components {
					require.Equal(t, byte(w.ComponentIndex[j]+1), c.Selector)
					if channels == 1 {
						require.Equal(t, byte(1), c.Selector)
					}
				}
			}
			require.Greater(t, psnr(t, b, ppf), 30.0)
		}
	}
}

func TestSimpleProgression(t *testing.T) {
	ppf := packedFile(16, 16, 3, gradient)
	segs := parse(t, encodeFile(t, ppf, map[string]string{"progressive": "0"}))
	require.Equal(t, 1, jpegseg.Count(segs, jpegseg.SOF2))
	require.Equal(t, 10, jpegseg.Count(segs, jpegseg.SOS))
}

func TestICCSegments(t *testing.T) {
	icc := make([]byte, 200000)
	for i := range icc {
		icc[i] = byte(i * 31)
	}
	ppf := packedFile(1, 1, 3, func(x, y, c int) byte { return 255 })
	ppf.ICC = icc
	segs := parse(t, encodeFile(t, ppf, nil))

	var idx [][2]byte
	for _, s := range segs {
		if s.Marker == jpegseg.APP2 && bytes.HasPrefix(s.Data, []byte("ICC_PROFILE\x00")) {
			require.LessOrEqual(t, len(s.Data), 65533)
			idx = append(idx, [2]byte{s.Data[12], s.Data[13]})
		}
	}
	require.Equal(t, [][2]byte{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, idx)
	got, err := jpegseg.ICCProfile(segs)
	require.NoError(t, err)
	require.True(t, bytes.Equal(icc, got))
}

func TestSRGBOmitsICC(t *testing.T) {
	for _, channels := range []int{1, 3} {
		ppf := packedFile(1, 1, channels, gradient)
		ppf.ICC = []byte("not really a profile")
		ppf.ColorEncoding = SRGBColorEncoding(channels == 1)
		segs := parse(t, encodeFile(t, ppf, nil))
		require.Zero(t, jpegseg.Count(segs, jpegseg.APP2))

		ppf.ColorEncoding.TransferFunction = TransferLinear
		segs = parse(t, encodeFile(t, ppf, nil))
		require.Equal(t, 1, jpegseg.Count(segs, jpegseg.APP2))
	}
}

// exifWithOrientation returns a little-endian TIFF blob with an orientation
// entry.
func exifWithOrientation(v uint16) []byte {
	le := binary.LittleEndian
	b := []byte("II*\x00")
	b = le.AppendUint32(b, 8)
	b = le.AppendUint16(b, 1)
	b = le.AppendUint16(b, 0x0112)
	b = le.AppendUint16(b, 3)
	b = le.AppendUint32(b, 1)
	b = le.AppendUint16(b, v)
	b = le.AppendUint16(b, 0)
	return le.AppendUint32(b, 0)
}

func TestExifOrientationReset(t *testing.T) {
	ppf := packedFile(8, 8, 3, gradient)
	ppf.Metadata.Exif = exifWithOrientation(6)
	orig := bytes.Clone(ppf.Metadata.Exif)
	segs := parse(t, encodeFile(t, ppf, nil))

	got := jpegseg.Exif(segs)
	require.NotNil(t, got)
	o, ok := exif.Orientation(got)
	require.True(t, ok)
	require.Equal(t, 1, o)
	require.Equal(t, orig, ppf.Metadata.Exif, "caller's Exif modified")
}

func TestMarkerOrder(t *testing.T) {
	ppf := packedFile(8, 8, 3, gradient)
	ppf.ICC = []byte("profile")
	ppf.Metadata.Exif = exifWithOrientation(1)
	segs := parse(t, encodeFile(t, ppf, nil))
	var order []byte
	for _, s := range segs {
		order = append(order, s.Marker)
	}
	require.Equal(t, []byte{
		jpegseg.SOI, jpegseg.APP0, jpegseg.APP2, jpegseg.APP1,
		jpegseg.DQT, jpegseg.DQT, jpegseg.SOF0,
		jpegseg.DHT, jpegseg.DHT, jpegseg.DHT, jpegseg.DHT,
		jpegseg.SOS, jpegseg.EOI,
	}, order)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		opts     map[string]string
	}{
		{"gray", 1, nil},
		{"rgb 444", 3, map[string]string{"q": "90"}},
		{"rgb 420", 3, map[string]string{"q": "90", "chroma_subsampling": "420"}},
		{"rgb 422", 3, map[string]string{"q": "90", "chroma_subsampling": "422"}},
		{"rgb 440", 3, map[string]string{"q": "90", "chroma_subsampling": "440"}},
		{"no optimize", 3, map[string]string{"optimize": "OFF"}},
		{"progressive", 3, map[string]string{"progressive": "0", "q": "85"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppf := packedFile(33, 17, tt.channels, gradient)
			b := encodeFile(t, ppf, tt.opts)
			m, err := jpeg.Decode(bytes.NewReader(b))
			require.NoError(t, err)
			require.Equal(t, image.Rect(0, 0, 33, 17), m.Bounds())
			if tt.channels == 1 {
				require.IsType(t, &image.Gray{}, m)
			} else {
				require.IsType(t, &image.YCbCr{}, m)
			}
			require.Greater(t, psnr(t, b, ppf), 28.0)
		})
	}
}

func TestSubsamplingFactors(t *testing.T) {
	tests := map[string][2]int{"444": {1, 1}, "420": {2, 2}, "422": {2, 1}, "440": {1, 2}}
	for name, hv := range tests {
		ppf := packedFile(16, 16, 3, gradient)
		segs := parse(t, encodeFile(t, ppf, map[string]string{"chroma_subsampling": name}))
		f, err := jpegseg.Frame(segs)
		require.NoError(t, err)
		require.Equal(t, hv, [2]int{f.Components[0].H, f.Components[0].V}, name)
		require.Equal(t, [2]int{1, 1}, [2]int{f.Components[1].H, f.Components[1].V}, name)
	}
}

func TestXYB(t *testing.T) {
	ppf := packedFile(16, 16, 3, gradient)
	ppf.ColorEncoding.ColorSpace = ColorSpaceXYB
	segs := parse(t, encodeFile(t, ppf, map[string]string{"chroma_subsampling": "420"}))
	require.Zero(t, jpegseg.Count(segs, jpegseg.APP0))
	require.Equal(t, 1, jpegseg.Count(segs, jpegseg.APP14))
	f, err := jpegseg.Frame(segs)
	require.NoError(t, err)
	for i, id := range []byte("RGB") {
		require.Equal(t, jpegseg.FrameComponent{ID: id, H: 1, V: 1, Tq: 0}, f.Components[i])
	}
}

func TestUnknownOptionsIgnored(t *testing.T) {
	ppf := packedFile(16, 16, 3, gradient)
	a := encodeFile(t, ppf, map[string]string{"q": "80"})
	b := encodeFile(t, ppf, map[string]string{"q": "80", "effort": "9", "Q": "10"})
	require.Equal(t, a, b)
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*PackedPixelFile)
		opts   map[string]string
		kind   error
	}{
		{"alpha", func(p *PackedPixelFile) { p.Info.AlphaBits = 8 }, nil, ErrInvalidPixelFormat},
		{"two channels", func(p *PackedPixelFile) { p.Info.NumColorChannels = 2 }, nil, ErrInvalidPixelFormat},
		{"empty", func(p *PackedPixelFile) { p.Info.XSize = 0 }, nil, ErrInvalidPixelFormat},
		{"uint16", func(p *PackedPixelFile) { p.Frames[0].Color.Format.DataType = TypeUint16 }, nil, ErrInvalidPixelFormat},
		{"frame size", func(p *PackedPixelFile) { p.Frames[0].Color.XSize = 7 }, nil, ErrInvalidPixelFormat},
		{"short buffer", func(p *PackedPixelFile) { p.Frames[0].Color.Pixels = p.Frames[0].Color.Pixels[:10] }, nil, ErrInvalidPixelFormat},
		{"quality", nil, map[string]string{"q": "101"}, ErrInvalidParameter},
		{"negative quality", nil, map[string]string{"q": "-1"}, ErrInvalidParameter},
		{"libjpeg quality", nil, map[string]string{"libjpeg_quality": "200"}, ErrInvalidParameter},
		{"bad number", nil, map[string]string{"q": "high"}, ErrInvalidParameter},
		{"encoder", nil, map[string]string{"jpeg_encoder": "mozjpeg"}, ErrInvalidParameter},
		{"script id", nil, map[string]string{"progressive": "7"}, ErrInvalidParameter},
		{"subsampling", nil, map[string]string{"chroma_subsampling": "411"}, ErrInvalidParameter},
		{"exif too large", func(p *PackedPixelFile) { p.Metadata.Exif = make([]byte, 65528) }, nil, ErrCodecFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppf := packedFile(8, 8, 3, gradient)
			if tt.modify != nil {
				tt.modify(ppf)
			}
			e := NewEncoder()
			for k, v := range tt.opts {
				e.SetOption(k, v)
			}
			out, err := e.Encode(context.Background(), ppf, nil)
			require.Error(t, err)
			require.Nil(t, out)
			require.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestExifLimit(t *testing.T) {
	ppf := packedFile(8, 8, 3, gradient)
	ppf.Metadata.Exif = make([]byte, 65527)
	segs := parse(t, encodeFile(t, ppf, nil))
	require.Len(t, jpegseg.Exif(segs), 65527)
}

func multiFrame(n int) *PackedPixelFile {
	ppf := packedFile(24, 16, 3, gradient)
	for i := 1; i < n; i++ {
		f := packedFile(24, 16, 3, func(x, y, c int) byte { return byte(x*i + y*c) })
		ppf.Frames = append(ppf.Frames, f.Frames[0])
	}
	return ppf
}

func TestPool(t *testing.T) {
	ppf := multiFrame(5)
	e := NewEncoder()
	e.SetOption("progressive", "4")
	seq, err := e.Encode(context.Background(), ppf, nil)
	require.NoError(t, err)
	par, err := e.Encode(context.Background(), ppf, NewPool(3))
	require.NoError(t, err)
	require.Len(t, par.Bitstreams, 5)
	require.Equal(t, seq.Bitstreams, par.Bitstreams)
	for i := 1; i < 5; i++ {
		require.NotEqual(t, seq.Bitstreams[0], seq.Bitstreams[i])
	}

	ppf.Frames[3].Color.XSize++
	for _, pool := range []*Pool{nil, NewPool(2)} {
		out, err := e.Encode(context.Background(), ppf, pool)
		require.True(t, errors.Is(err, ErrInvalidPixelFormat))
		require.Nil(t, out)
	}
}

func TestEncoderOptions(t *testing.T) {
	e := NewEncoder()
	e.SetOption("q", "50")
	opts := e.Options()
	require.Equal(t, map[string]string{"q": "50"}, opts)
	opts["q"] = "10"
	require.Equal(t, "50", e.Options()["q"])
	require.Equal(t, AcceptedFormats(), e.AcceptedFormats())
}

func TestAcceptedFormats(t *testing.T) {
	require.Equal(t, []PixelFormat{
		{NumChannels: 1, DataType: TypeUint8, Endianness: BigEndian},
		{NumChannels: 1, DataType: TypeUint8, Endianness: LittleEndian},
		{NumChannels: 3, DataType: TypeUint8, Endianness: BigEndian},
		{NumChannels: 3, DataType: TypeUint8, Endianness: LittleEndian},
	}, AcceptedFormats())
}

func TestIsSRGB(t *testing.T) {
	require.True(t, SRGBColorEncoding(false).IsSRGB())
	require.True(t, SRGBColorEncoding(true).IsSRGB())
	require.False(t, ColorEncoding{}.IsSRGB())
	for _, modify := range []func(*ColorEncoding){
		func(c *ColorEncoding) { c.ColorSpace = ColorSpaceXYB },
		func(c *ColorEncoding) { c.Primaries = PrimariesP3 },
		func(c *ColorEncoding) { c.WhitePoint = WhitePointDCI },
		func(c *ColorEncoding) { c.TransferFunction = TransferPQ },
	} {
		c := SRGBColorEncoding(false)
		modify(&c)
		require.False(t, c.IsSRGB())
	}
}

func TestNewPackedImage(t *testing.T) {
	img := NewPackedImage(5, 3, PixelFormat{NumChannels: 3, DataType: TypeUint8, Align: 8})
	require.Equal(t, 16, img.Stride)
	require.Len(t, img.Pixels, 48)
	img = NewPackedImage(5, 3, PixelFormat{NumChannels: 1, DataType: TypeUint16})
	require.Equal(t, 10, img.Stride)
}

func TestErrorFormat(t *testing.T) {
	err := newError(ErrInvalidParameter, "unknown jpeg scan script id %d", 9)
	require.Equal(t, "unknown jpeg scan script id 9", err.Error())
	require.True(t, errors.Is(err, ErrInvalidParameter))
	require.False(t, errors.Is(err, ErrCodecFailure))

	cerr := codecError(errors.New("codec: bogus marker length"))
	require.Equal(t, "codec: bogus marker length", cerr.Error())
	require.True(t, errors.Is(cerr, ErrCodecFailure))
	require.Equal(t, err, codecError(err))
}
