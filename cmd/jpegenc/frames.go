package main

import (
	"image"
	"image/gif"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/dlecorfec/jpegenc"
)

// readFrames decodes the input file. Animated GIFs yield one image per
// frame, each composed over the previous ones; other formats yield one.
func readFrames(path string) ([]image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "cant open input %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "cant decode input %s", path)
	}
	if format != "gif" {
		return []image.Image{img}, format, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", errors.WithStack(err)
	}
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "cant decode input %s", path)
	}
	return composeGIF(g), format, nil
}

func composeGIF(g *gif.GIF) []image.Image {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	for _, p := range g.Image {
		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		frame := image.NewRGBA(bounds)
		copy(frame.Pix, canvas.Pix)
		frames = append(frames, frame)
	}
	return frames
}

// fit scales img down so that neither side exceeds maxDim.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	var dst draw.Image = image.NewRGBA(image.Rect(0, 0, w, h))
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(dst.Bounds())
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// packFrames turns the frames into one multi-frame file. All frames must
// share the first frame's size and channel count.
func packFrames(frames []image.Image) (*jpegenc.PackedPixelFile, error) {
	var ppf *jpegenc.PackedPixelFile
	for i, img := range frames {
		one, err := jpegenc.FromImage(img)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		if ppf == nil {
			ppf = one
			continue
		}
		if one.Info != ppf.Info {
			return nil, errors.Errorf("frame %d is %dx%d, want %dx%d", i, one.Info.XSize, one.Info.YSize, ppf.Info.XSize, ppf.Info.YSize)
		}
		ppf.Frames = append(ppf.Frames, one.Frames...)
	}
	if ppf == nil {
		return nil, errors.New("no frames to encode")
	}
	return ppf, nil
}
