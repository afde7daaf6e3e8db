// Package codec decodes source rasters and encodes exported images.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrDecode      = errors.New("decode failed")
	ErrEncode      = errors.New("encode failed")
	ErrUnsupported = errors.New("unsupported format")
)

// DefaultQuality is the JPEG quality hosts start from when none is configured.
const DefaultQuality = 90

// Format is an output container.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// ParseFormat accepts jpeg, jpg and png, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Ext returns the file extension written for f, with the leading dot.
func (f Format) Ext() string {
	if f == PNG {
		return ".png"
	}
	return ".jpg"
}

var inputExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsSupported reports whether path has an importable image extension.
func IsSupported(path string) bool {
	return inputExts[strings.ToLower(filepath.Ext(path))]
}

// Open decodes the image at path, applying EXIF orientation.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return img, nil
}

// Decode reads an image from r, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// EncodeOptions controls Encode. Quality is clamped to the 1..100 range the
// JPEG encoder accepts, so 0 asks for the smallest file. Background is the colour JPEG output is flattened onto.
type EncodeOptions struct {
	Format     Format
	Quality    int
	Background color.NRGBA
}

// Encode writes img to w. JPEG has no alpha channel, so transparent pixels are
// composited over opts.Background first.
func Encode(w io.Writer, img image.Image, opts EncodeOptions) error {
	var err error
	switch opts.Format {
	case PNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case JPEG, "":
		q := min(max(opts.Quality, 1), 100)
		bg := opts.Background
		if bg == (color.NRGBA{}) {
			bg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		err = imaging.Encode(w, Flatten(img, bg), imaging.JPEG, imaging.JPEGQuality(q))
	default:
		return fmt.Errorf("%w: %w: %q", ErrEncode, ErrUnsupported, opts.Format)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

// Save encodes img into a new file at path, creating parent directories.
func Save(path string, img image.Image, opts EncodeOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrEncode, cerr)
		}
	}()
	return Encode(out, img, opts)
}

// Flatten composites img over an opaque background.
func Flatten(img image.Image, bg color.NRGBA) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, &image.Uniform{C: bg}, image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)
	return rgba
}
