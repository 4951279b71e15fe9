// Command jpegenc encodes images as JPEG files through the jpegenc package.
// It can also serve the generated JPEG over HTTP for testing progressive
// loading using a browser and its throttling capabilities in dev tools.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dlecorfec/jpegenc"
	"github.com/dlecorfec/jpegenc/internal/jpegseg"
	"github.com/dlecorfec/jpegenc/internal/logger"
)

var log = logrus.New()

var (
	flagIn      = flag.String("i", "", "Input image file path")
	flagOut     = flag.String("o", "", "Output JPEG file path")
	flagHTTP    = flag.String("http", "", "Host and port for HTTP server serving output")
	flagICC     = flag.String("icc", "", "ICC profile to embed")
	flagExif    = flag.String("exif", "", "Exif payload to embed")
	flagXYB     = flag.Bool("xyb", false, "Input samples are XYB, keep them in RGB channels")
	flagEnv     = flag.String("env", "", "Read JPEGENC_* options from this .env file (default .env if present)")
	flagMaxDim  = flag.Int("maxdim", 0, "Scale the input down to fit this size")
	flagInspect = flag.Bool("inspect", false, "Print the marker segments of the output")
	flagVerbose = flag.Bool("v", false, "Debug logging")
)

func main() {
	opts := optionList{}
	flag.Var(opts, "opt", "Encoder option key=value, may be repeated")
	flag.Parse()

	if *flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if *flagIn == "" || *flagOut == "" {
		flag.Usage()
		log.Fatal("input and output file paths must be specified")
	}
	served, err := run(opts)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	// test server for progressive loading
	if *flagHTTP != "" {
		log.Infof("serving %s on http://%s/", served, *flagHTTP)
		http.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, served)
		}))
		if err := http.ListenAndServe(*flagHTTP, nil); err != nil {
			log.Fatalf("cant start http server on %s: %s", *flagHTTP, err)
		}
	}
}

// run encodes the input and returns the path of the first output.
func run(flagOpts optionList) (string, error) {
	envPath, required := *flagEnv, true
	if envPath == "" {
		envPath, required = ".env", false
	}
	options, err := envOptions(envPath, required)
	if err != nil {
		return "", err
	}
	for k, v := range flagOpts {
		options[k] = v
	}

	frames, format, err := readFrames(*flagIn)
	if err != nil {
		return "", err
	}
	for i := range frames {
		frames[i] = fit(frames[i], *flagMaxDim)
	}
	ppf, err := packFrames(frames)
	if err != nil {
		return "", err
	}
	entry := log.WithField("input", filepath.Base(*flagIn))
	entry.Debugf("decoded %s: %dx%d, %d frames", format, ppf.Info.XSize, ppf.Info.YSize, len(ppf.Frames))

	if *flagICC != "" {
		if ppf.ICC, err = os.ReadFile(*flagICC); err != nil {
			return "", err
		}
		// The profile describes the samples, so they are no longer sRGB.
		ppf.ColorEncoding = jpegenc.ColorEncoding{ColorSpace: ppf.ColorEncoding.ColorSpace}
	}
	if *flagExif != "" {
		if ppf.Metadata.Exif, err = os.ReadFile(*flagExif); err != nil {
			return "", err
		}
	}
	if *flagXYB {
		if ppf.Info.NumColorChannels != 3 {
			return "", errors.New("xyb needs a color input")
		}
		ppf.ColorEncoding = jpegenc.ColorEncoding{ColorSpace: jpegenc.ColorSpaceXYB}
	}

	enc := jpegenc.NewEncoder()
	for k, v := range options {
		enc.SetOption(k, v)
	}
	ctx := logger.WithLogEntry(context.Background(), entry)
	var pool *jpegenc.Pool
	if len(ppf.Frames) > 1 {
		pool = jpegenc.NewPool(runtime.NumCPU())
	}
	encoded, err := enc.Encode(ctx, ppf, pool)
	if err != nil {
		return "", err
	}

	for i, b := range encoded.Bitstreams {
		name := outputName(*flagOut, i, len(encoded.Bitstreams))
		if err := os.WriteFile(name, b, 0o644); err != nil {
			return "", err
		}
		entry.Infof("wrote %s (%d bytes)", name, len(b))
		if *flagInspect {
			if err := inspect(os.Stdout, b); err != nil {
				return "", err
			}
		}
	}
	return outputName(*flagOut, 0, len(encoded.Bitstreams)), nil
}

// outputName numbers the outputs of a multi-frame input: out.jpg becomes
// out-000.jpg, out-001.jpg and so on.
func outputName(out string, i, n int) string {
	if n == 1 {
		return out
	}
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(out, ext), i, ext)
}

func inspect(w io.Writer, b []byte) error {
	segs, err := jpegseg.Parse(b)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, s := range segs {
		fmt.Fprintf(&buf, "%v", s)
		if s.Marker == jpegseg.SOS {
			if h, err := s.Scan(); err == nil {
				fmt.Fprintf(&buf, " comps=%d Ss=%d Se=%d Ah=%d Al=%d", len(h.Components), h.Ss, h.Se, h.Ah, h.Al)
			}
		}
		buf.WriteByte('\n')
	}
	_, err = w.Write(buf.Bytes())
	return err
}
