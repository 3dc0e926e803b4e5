package export

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// errSourceUnreadable marks a frame that exists but cannot be decoded.
var errSourceUnreadable = errors.New("source image unreadable")

// ImageFileName is the deterministic exported name of a frame.
func ImageFileName(sampleID int, camera string) string {
	return fmt.Sprintf("sample_%04d_%s.jpg", sampleID, camera)
}

// Resize scales img down to maxWidth keeping its aspect ratio. Images that
// are already narrow enough, or a non-positive maxWidth, are returned as is.
func Resize(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// copyFrame writes src to dst. A JPEG source that needs no scaling is copied
// byte for byte; anything else is decoded, scaled and re-encoded. It returns
// the number of bytes written. Decode failures wrap errSourceUnreadable;
// every other error concerns the destination.
func (e *Exporter) copyFrame(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errSourceUnreadable, err)
	}
	defer in.Close()

	cfg, format, err := image.DecodeConfig(in)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errSourceUnreadable, err)
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: %v", errSourceUnreadable, err)
	}

	verbatim := format == "jpeg" && (e.opts.MaxImageWidth <= 0 || cfg.Width <= e.opts.MaxImageWidth)

	var img image.Image
	if !verbatim {
		if img, _, err = image.Decode(in); err != nil {
			return 0, fmt.Errorf("%w: %v", errSourceUnreadable, err)
		}
		img = Resize(img, e.opts.MaxImageWidth)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: out}
	if verbatim {
		_, err = io.Copy(cw, in)
	} else {
		err = jpeg.Encode(cw, img, &jpeg.Options{Quality: e.opts.JPEGQuality})
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
