package watermark

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"wmstudio/pkg/codec"
	"wmstudio/pkg/fonts"
	"wmstudio/pkg/placement"
)

var (
	ErrMissingSource = errors.New("watermark has no content")
	ErrOutOfRange    = errors.New("watermark parameter out of range")
)

const (
	MinFontSize     = 8
	MaxFontSize     = 120
	DefaultFontSize = 80

	MinScale     = 10
	MaxScale     = 500
	DefaultScale = 100

	MaxOpacity = 100
)

// Kind discriminates text from image content.
type Kind int

const (
	KindText Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindImage:
		return "IMAGE"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != KindText && k != KindImage {
		return nil, fmt.Errorf("invalid content kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "TEXT":
		*k = KindText
	case "IMAGE":
		*k = KindImage
	default:
		return fmt.Errorf("unknown content kind %q", string(b))
	}
	return nil
}

// Text is the payload of a text watermark.
type Text struct {
	Content    string
	FontFamily string
	FontSize   int
	Bold       bool
	Italic     bool
	Color      Color
	Shadow     bool
	Outline    bool
}

// Style returns the font style selected by the bold/italic flags.
func (t Text) Style() fonts.Style { return fonts.StyleOf(t.Bold, t.Italic) }

// Image is the payload of an image watermark. Raster is treated as
// immutable and is shared between copies of a Spec; Path is what gets
// persisted.
type Image struct {
	Path   string
	Scale  int
	Raster image.Image
}

// Spec is the complete description of one watermark. It is a value type:
// assigning it copies everything except the shared read-only Raster.
type Spec struct {
	Kind      Kind
	Text      Text
	Image     Image
	Opacity   int
	Rotation  float64
	Placement placement.Placement
}

// DefaultText returns a white, fully opaque text watermark anchored
// bottom-right.
func DefaultText(content string) Spec {
	return Spec{
		Kind: KindText,
		Text: Text{
			Content:    content,
			FontFamily: fonts.DefaultFamily,
			FontSize:   DefaultFontSize,
			Color:      White,
		},
		Image:     Image{Scale: DefaultScale},
		Opacity:   MaxOpacity,
		Placement: placement.AtAnchor(placement.BottomRight),
	}
}

// DefaultImage returns an image watermark at 100% scale anchored
// bottom-right.
func DefaultImage(path string, raster image.Image) Spec {
	s := DefaultText("")
	s.Kind = KindImage
	s.Image = Image{Path: path, Scale: DefaultScale, Raster: raster}
	return s
}

// Clone returns an independent copy of s.
func (s Spec) Clone() Spec {
	return s
}

// Validate reports missing content and out-of-range parameters.
func (s Spec) Validate() error {
	if err := s.CheckParams(); err != nil {
		return err
	}
	if s.Kind == KindImage && s.Image.Raster == nil {
		return fmt.Errorf("%w: no image loaded", ErrMissingSource)
	}
	return nil
}

// CheckParams is Validate without requiring the image raster to be loaded.
func (s Spec) CheckParams() error {
	if s.Opacity < 0 || s.Opacity > MaxOpacity {
		return fmt.Errorf("%w: opacity %d not in [0,%d]", ErrOutOfRange, s.Opacity, MaxOpacity)
	}
	if math.IsNaN(s.Rotation) || math.IsInf(s.Rotation, 0) {
		return fmt.Errorf("%w: rotation %v", ErrOutOfRange, s.Rotation)
	}
	if !s.Placement.Anchor.Valid() {
		return fmt.Errorf("%w: anchor %v", ErrOutOfRange, s.Placement.Anchor)
	}
	switch s.Kind {
	case KindText:
		if strings.TrimSpace(s.Text.Content) == "" {
			return fmt.Errorf("%w: empty text", ErrMissingSource)
		}
		if s.Text.FontSize < MinFontSize || s.Text.FontSize > MaxFontSize {
			return fmt.Errorf("%w: font size %d not in [%d,%d]", ErrOutOfRange, s.Text.FontSize, MinFontSize, MaxFontSize)
		}
	case KindImage:
		if s.Image.Scale < MinScale || s.Image.Scale > MaxScale {
			return fmt.Errorf("%w: scale %d not in [%d,%d]", ErrOutOfRange, s.Image.Scale, MinScale, MaxScale)
		}
	default:
		return fmt.Errorf("%w: content kind %v", ErrOutOfRange, s.Kind)
	}
	return nil
}

// NormalizedRotation returns Rotation folded into (-180, 180].
func (s Spec) NormalizedRotation() float64 {
	r := math.Mod(s.Rotation, 360)
	if r > 180 {
		r -= 360
	} else if r <= -180 {
		r += 360
	}
	return r
}

// LoadRaster decodes Image.Path into Image.Raster for image watermarks that
// were restored from a record. Text specs are left alone.
func (s *Spec) LoadRaster() error {
	if s.Kind != KindImage || s.Image.Raster != nil {
		return nil
	}
	if strings.TrimSpace(s.Image.Path) == "" {
		return fmt.Errorf("%w: no image path", ErrMissingSource)
	}
	img, err := codec.Open(s.Image.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingSource, err)
	}
	s.Image.Raster = img
	return nil
}
