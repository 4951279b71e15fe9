package codec

import (
	"bufio"
	"bytes"
	"io"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Compressor holds the parameters and working state of one compression.
// Fields are set by the caller between NewCompressor (or Abort) and
// StartCompress.
type Compressor struct {
	ImageWidth, ImageHeight int
	// InputComponents and InColorSpace describe the scanlines.
	InputComponents int
	InColorSpace    ColorSpace

	// JPEGColorSpace and NumComponents describe the file; SetColorspace
	// sets them together with CompInfo.
	JPEGColorSpace ColorSpace
	NumComponents  int
	CompInfo       [MaxComponents]ComponentInfo

	QuantTbls  [NumQuantTbls]*QuantTable
	DCHuffTbls [NumHuffTbls]*HuffTable
	ACHuffTbls [NumHuffTbls]*HuffTable

	// ScanInfo is the scan script. Nil means a single sequential scan.
	ScanInfo []ScanInfo
	// OptimizeCoding computes optimal Huffman tables per scan. It is
	// forced on in progressive mode.
	OptimizeCoding bool
	// RawDataIn selects WriteRawData instead of WriteScanlines.
	RawDataIn bool

	WriteJFIFHeader                    bool
	JFIFMajorVersion, JFIFMinorVersion byte
	DensityUnit                        byte
	XDensity, YDensity                 uint16
	WriteAdobeMarker                   bool

	// Log receives trace output; nil means the standard logger.
	Log *logrus.Entry

	fsm  *fsm.FSM
	e    emitter
	mem  *bytes.Buffer
	dest *bufio.Writer

	progressive     bool
	scans           []ScanInfo
	markerRemaining int
	sentQuant       [NumQuantTbls]bool
	sentDC, sentAC  [NumHuffTbls]bool

	maxH, maxV   int
	mcusPerRow   int
	mcuRows      int
	pixels       []byte
	nextScanline int
	raw          [][]byte
	rawStrides   []int
	coefs        [MaxComponents][]coefBlock
}

// NewCompressor returns a compressor in the start state.
func NewCompressor() *Compressor {
	c := &Compressor{}
	c.fsm = c.newFSM()
	return c
}

func (c *Compressor) log() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// MemDest directs the output to an in-memory buffer, read back with Bytes.
func (c *Compressor) MemDest() {
	c.mem = &bytes.Buffer{}
	c.dest = nil
	c.e.w = c.mem
}

// SetDest directs the output to w. The output is flushed by FinishCompress.
func (c *Compressor) SetDest(w io.Writer) {
	c.mem = nil
	c.dest = bufio.NewWriter(w)
	c.e.w = c.dest
}

// Bytes returns the compressed image written to the memory destination. The
// slice is owned by the compressor and invalidated by Destroy.
func (c *Compressor) Bytes() []byte {
	if c.mem == nil {
		return nil
	}
	return c.mem.Bytes()
}

// SetDefaults installs default parameters for the current InColorSpace.
func (c *Compressor) SetDefaults() error {
	if err := c.requireState(stateStart); err != nil {
		return err
	}
	if c.InColorSpace == Unknown {
		return errors.New("codec: InColorSpace must be set before SetDefaults")
	}
	if err := c.SetQuality(75, true); err != nil {
		return err
	}
	c.DCHuffTbls = [NumHuffTbls]*HuffTable{stdLuminanceDC.clone(), stdChrominanceDC.clone()}
	c.ACHuffTbls = [NumHuffTbls]*HuffTable{stdLuminanceAC.clone(), stdChrominanceAC.clone()}
	c.ScanInfo = nil
	c.OptimizeCoding = false
	c.RawDataIn = false
	c.JFIFMajorVersion, c.JFIFMinorVersion = 1, 1
	c.DensityUnit = 0
	c.XDensity, c.YDensity = 1, 1
	return c.SetColorspace(c.defaultColorspace())
}

func (c *Compressor) defaultColorspace() ColorSpace {
	switch c.InColorSpace {
	case Grayscale:
		return Grayscale
	case RGB, YCbCr:
		return YCbCr
	}
	return Unknown
}

// SetColorspace selects the JPEG color space and resets the component
// parameters accordingly: ids, sampling factors and table slots.
func (c *Compressor) SetColorspace(cs ColorSpace) error {
	if err := c.requireState(stateStart); err != nil {
		return err
	}
	c.WriteJFIFHeader = false
	c.WriteAdobeMarker = false
	setComp := func(i, id, h, v, slot int) {
		c.CompInfo[i] = ComponentInfo{
			ID:          id,
			HSampFactor: h,
			VSampFactor: v,
			QuantTblNo:  slot,
			DCTblNo:     slot,
			ACTblNo:     slot,
		}
	}
	switch cs {
	case Grayscale:
		c.WriteJFIFHeader = true
		c.NumComponents = 1
		setComp(0, 1, 1, 1, 0)
	case RGB:
		c.WriteAdobeMarker = true
		c.NumComponents = 3
		setComp(0, 'R', 1, 1, 0)
		setComp(1, 'G', 1, 1, 0)
		setComp(2, 'B', 1, 1, 0)
	case YCbCr:
		c.WriteJFIFHeader = true
		c.NumComponents = 3
		setComp(0, 1, 2, 2, 0)
		setComp(1, 2, 1, 1, 1)
		setComp(2, 3, 1, 1, 1)
	default:
		return errors.Errorf("codec: unsupported JPEG color space %v", cs)
	}
	c.JPEGColorSpace = cs
	return nil
}

// StartCompress validates the parameters and the scan script and writes
// the file header. With writeAllTables, every table used is written even if
// it was marked as already sent.
func (c *Compressor) StartCompress(writeAllTables bool) error {
	if err := c.requireState(stateStart); err != nil {
		return err
	}
	if c.e.w == nil {
		return errors.New("codec: no destination set")
	}
	if err := c.initialSetup(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if c.progressive {
		c.OptimizeCoding = true
	}
	for i := range c.sentQuant {
		c.sentQuant[i] = !writeAllTables
		c.sentDC[i] = !writeAllTables
		c.sentAC[i] = !writeAllTables
	}
	if err := c.transition(eventBegin); err != nil {
		return err
	}
	c.e.writeMarker(soiMarker)
	if c.WriteJFIFHeader {
		c.writeJFIF()
	}
	if c.WriteAdobeMarker {
		c.writeAdobe()
	}
	return c.e.err
}

// initialSetup checks the image and component parameters and computes the
// per-component geometry.
func (c *Compressor) initialSetup() error {
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 || c.InputComponents <= 0 {
		return errors.New("codec: empty image")
	}
	if c.ImageWidth > 65500 || c.ImageHeight > 65500 {
		return errors.Errorf("codec: maximum supported image dimension is 65500 pixels")
	}
	if c.NumComponents <= 0 || c.NumComponents > MaxComponents {
		return errors.Errorf("codec: bogus number of components %d", c.NumComponents)
	}
	if !c.RawDataIn {
		if err := c.checkConversion(); err != nil {
			return err
		}
	}
	c.maxH, c.maxV = 1, 1
	for i := 0; i < c.NumComponents; i++ {
		comp := &c.CompInfo[i]
		if comp.HSampFactor < 1 || comp.HSampFactor > maxSampFactor ||
			comp.VSampFactor < 1 || comp.VSampFactor > maxSampFactor {
			return errors.New("codec: bogus sampling factors")
		}
		if comp.QuantTblNo < 0 || comp.QuantTblNo >= NumQuantTbls || c.QuantTbls[comp.QuantTblNo] == nil {
			return errors.Errorf("codec: quantization table %d was not defined", comp.QuantTblNo)
		}
		if comp.DCTblNo < 0 || comp.DCTblNo >= NumHuffTbls || comp.ACTblNo < 0 || comp.ACTblNo >= NumHuffTbls {
			return errors.New("codec: bogus Huffman table slot")
		}
		c.maxH = max(c.maxH, comp.HSampFactor)
		c.maxV = max(c.maxV, comp.VSampFactor)
	}
	for i := 0; i < c.NumComponents; i++ {
		comp := &c.CompInfo[i]
		if c.maxH%comp.HSampFactor != 0 || c.maxV%comp.VSampFactor != 0 {
			return errors.New("codec: fractional sampling not implemented yet")
		}
		comp.widthInBlocks = ceilDiv(c.ImageWidth*comp.HSampFactor, c.maxH*8)
		comp.heightInBlocks = ceilDiv(c.ImageHeight*comp.VSampFactor, c.maxV*8)
		comp.downsampledWidth = ceilDiv(c.ImageWidth*comp.HSampFactor, c.maxH)
		comp.downsampledHeight = ceilDiv(c.ImageHeight*comp.VSampFactor, c.maxV)
	}
	c.mcusPerRow = ceilDiv(c.ImageWidth, c.maxH*8)
	c.mcuRows = ceilDiv(c.ImageHeight, c.maxV*8)
	return nil
}

// checkConversion reports whether the scanlines can be converted to the
// JPEG color space.
func (c *Compressor) checkConversion() error {
	want := map[ColorSpace]int{Grayscale: 1, RGB: 3, YCbCr: 3}
	n, ok := want[c.InColorSpace]
	if !ok || n != c.InputComponents {
		return errors.Errorf("codec: bogus input colorspace %v with %d components", c.InColorSpace, c.InputComponents)
	}
	switch {
	case c.InColorSpace == c.JPEGColorSpace:
	case c.InColorSpace == RGB && c.JPEGColorSpace == YCbCr:
	case c.InColorSpace != Grayscale && c.JPEGColorSpace == Grayscale:
	default:
		return errors.Errorf("codec: unsupported color conversion %v to %v", c.InColorSpace, c.JPEGColorSpace)
	}
	if c.NumComponents != n && c.JPEGColorSpace != Grayscale {
		return errors.Errorf("codec: bogus number of components %d for %v", c.NumComponents, c.JPEGColorSpace)
	}
	return nil
}

func (c *Compressor) beginScanning() error {
	if c.fsm != nil && c.fsm.Is(stateScanning) {
		return nil
	}
	if err := c.requireState(stateHeader); err != nil {
		return err
	}
	if c.markerRemaining != 0 {
		return errors.Errorf("codec: marker has %d bytes outstanding", c.markerRemaining)
	}
	return c.transition(eventScan)
}

// WriteScanlines stores rows of InputComponents interleaved samples and
// reports how many were accepted. Rows past the image height are ignored.
func (c *Compressor) WriteScanlines(rows [][]byte) (int, error) {
	if c.RawDataIn {
		return 0, errors.New("codec: WriteScanlines called in raw data mode")
	}
	if err := c.beginScanning(); err != nil {
		return 0, err
	}
	rowBytes := c.ImageWidth * c.InputComponents
	if c.pixels == nil {
		c.pixels = make([]byte, rowBytes*c.ImageHeight)
	}
	n := 0
	for _, row := range rows {
		if c.nextScanline >= c.ImageHeight {
			c.log().Warn("codec: too many scanlines")
			break
		}
		if len(row) < rowBytes {
			return n, errors.Errorf("codec: scanline of %d bytes, want %d", len(row), rowBytes)
		}
		copy(c.pixels[c.nextScanline*rowBytes:], row[:rowBytes])
		c.nextScanline++
		n++
	}
	return n, nil
}

// WriteRawData supplies the whole image as one downsampled plane per
// component. Plane i holds the component's downsampled rows at strides[i]
// bytes apart.
func (c *Compressor) WriteRawData(planes [][]byte, strides []int) error {
	if !c.RawDataIn {
		return errors.New("codec: WriteRawData requires RawDataIn")
	}
	if err := c.beginScanning(); err != nil {
		return err
	}
	if c.raw != nil {
		return errors.New("codec: raw data already supplied")
	}
	if len(planes) != c.NumComponents || len(strides) != c.NumComponents {
		return errors.Errorf("codec: got %d planes, want %d", len(planes), c.NumComponents)
	}
	for i := 0; i < c.NumComponents; i++ {
		comp := &c.CompInfo[i]
		w, h := comp.downsampledWidth, comp.downsampledHeight
		if strides[i] < w || len(planes[i]) < strides[i]*(h-1)+w {
			return errors.Errorf("codec: raw plane %d too small for %dx%d", i, w, h)
		}
	}
	c.raw = make([][]byte, c.NumComponents)
	copy(c.raw, planes)
	c.rawStrides = append([]int(nil), strides...)
	c.nextScanline = c.ImageHeight
	return nil
}

// FinishCompress encodes the stored image and completes the file.
func (c *Compressor) FinishCompress() error {
	if err := c.requireState(stateScanning); err != nil {
		return err
	}
	if c.nextScanline < c.ImageHeight {
		return errors.Errorf("codec: application transferred %d of %d scanlines", c.nextScanline, c.ImageHeight)
	}
	if err := c.computeCoefficients(); err != nil {
		return err
	}
	if err := c.writeFrame(); err != nil {
		return err
	}
	if err := c.transition(eventFinish); err != nil {
		return err
	}
	if c.dest != nil && c.e.err == nil {
		c.e.err = c.dest.Flush()
	}
	return c.e.err
}

// Abort discards the image in progress and returns to the start state,
// keeping the parameters and the destination.
func (c *Compressor) Abort() error {
	if c.fsm == nil {
		return errors.New("codec: compressor used after Destroy")
	}
	if !c.fsm.Is(stateStart) {
		if err := c.transition(eventAbort); err != nil {
			return err
		}
	}
	c.release()
	if c.mem != nil {
		c.mem.Reset()
	}
	c.e.err = nil
	return nil
}

func (c *Compressor) release() {
	c.pixels = nil
	c.raw = nil
	c.rawStrides = nil
	c.coefs = [MaxComponents][]coefBlock{}
	c.nextScanline = 0
	c.markerRemaining = 0
	c.e.bits, c.e.nBits = 0, 0
}

// Destroy releases all memory held by the compressor, including the output
// buffer. It may be called more than once.
func (c *Compressor) Destroy() {
	c.release()
	c.mem = nil
	c.dest = nil
	c.e = emitter{}
	c.fsm = nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
