package jpegenc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dlecorfec/jpegenc/internal/codec"
	"github.com/dlecorfec/jpegenc/internal/logger"
)

// Backend selects the encoder that produces the bitstreams.
type Backend int

const (
	BackendLibJpeg Backend = iota
	BackendSJpeg
)

func (b Backend) String() string {
	switch b {
	case BackendLibJpeg:
		return "libjpeg"
	case BackendSJpeg:
		return "sjpeg"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// Params are the resolved encoding parameters.
type Params struct {
	// Quality is on the 0..100 scale.
	Quality           int
	ChromaSubsampling string
	// ProgressiveID selects a scan script: negative for sequential, 0 for
	// the codec's default progression, 1..NumScripts for the catalog.
	ProgressiveID  int
	OptimizeCoding bool
	// IsXYB keeps the samples in the RGB channels.
	IsXYB bool

	// LibjpegQuality, when positive, makes the sjpeg backend match the size
	// of a libjpeg encode at this quality and LibjpegChromaSubsampling.
	LibjpegQuality           int
	LibjpegChromaSubsampling string

	// scanScript overrides ProgressiveID when set.
	scanScript []codec.ScanInfo
}

// DefaultParams returns the parameters used when no option is set.
func DefaultParams() Params {
	return Params{
		Quality:                  100,
		ChromaSubsampling:        "444",
		ProgressiveID:            -1,
		OptimizeCoding:           true,
		LibjpegChromaSubsampling: "444",
	}
}

// Option names.
const (
	OptQuality                  = "q"
	OptLibjpegQuality           = "libjpeg_quality"
	OptChromaSubsampling        = "chroma_subsampling"
	OptLibjpegChromaSubsampling = "libjpeg_chroma_subsampling"
	OptEncoder                  = "jpeg_encoder"
	OptProgressive              = "progressive"
	OptOptimize                 = "optimize"
)

// ParseOptions resolves an options map into a backend and parameters.
// Unknown keys are ignored.
func ParseOptions(options map[string]string) (Backend, Params, error) {
	return parseOptions(context.Background(), options)
}

func parseOptions(ctx context.Context, options map[string]string) (Backend, Params, error) {
	log := logger.Entry(ctx)
	backend := BackendLibJpeg
	params := DefaultParams()

	keys := maps.Keys(options)
	slices.Sort(keys)
	var err error
	for _, k := range keys {
		v := options[k]
		switch k {
		case OptQuality:
			params.Quality, err = parseInt(k, v)
		case OptLibjpegQuality:
			params.LibjpegQuality, err = parseInt(k, v)
		case OptChromaSubsampling:
			params.ChromaSubsampling = v
		case OptLibjpegChromaSubsampling:
			params.LibjpegChromaSubsampling = v
		case OptEncoder:
			switch v {
			case "libjpeg":
				backend = BackendLibJpeg
			case "sjpeg":
				backend = BackendSJpeg
			default:
				err = newError(ErrInvalidParameter, "unknown jpeg encoder %q", v)
			}
		case OptProgressive:
			params.ProgressiveID, err = parseInt(k, v)
		case OptOptimize:
			if v == "OFF" {
				params.OptimizeCoding = false
			}
		default:
			log.Debugf("jpegenc: ignoring unknown option %s=%q", k, v)
		}
		if err != nil {
			return backend, params, err
		}
	}
	return backend, params, nil
}

// parseInt reads a leading decimal integer: leading white space is skipped
// and trailing characters are ignored, so "90abc" is 90.
func parseInt(key, s string) (int, error) {
	t := strings.TrimLeft(s, " \t\n\v\f\r")
	end := 0
	if end < len(t) && (t[end] == '+' || t[end] == '-') {
		end++
	}
	digits := end
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, newError(ErrInvalidParameter, "option %s: %q is not an integer", key, s)
	}
	n, err := strconv.ParseInt(t[:end], 10, 32)
	if err != nil {
		return 0, newError(ErrInvalidParameter, "option %s: %q is out of range", key, s)
	}
	return int(n), nil
}
