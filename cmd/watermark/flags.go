package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"wmstudio/pkg/codec"
	"wmstudio/pkg/placement"
	"wmstudio/pkg/template"
	"wmstudio/pkg/watermark"
)

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// specFlags are the watermark flags shared by export and preview. Only flags
// given on the command line override the starting spec.
type specFlags struct {
	fs *flag.FlagSet

	fromTemplate *string
	fromSession  *bool

	text     *string
	image    *string
	font     *string
	fontSize *int
	bold     *bool
	italic   *bool
	color    *string
	shadow   *bool
	outline  *bool
	scale    *int
	opacity  *int
	rotation *float64
	anchor   *string
	pos      *string
}

func addSpecFlags(fs *flag.FlagSet) *specFlags {
	return &specFlags{
		fs:           fs,
		fromTemplate: fs.String("template", "", "start from the named template"),
		fromSession:  fs.Bool("session", false, "start from the last session"),
		text:         fs.String("text", "", "text watermark content"),
		image:        fs.String("image", "", "image watermark path"),
		font:         fs.String("font", "", "font family or .ttf/.otf path"),
		fontSize:     fs.Int("font-size", watermark.DefaultFontSize, "font size (8..120)"),
		bold:         fs.Bool("bold", false, "bold text"),
		italic:       fs.Bool("italic", false, "italic text"),
		color:        fs.String("color", "#ffffff", "text colour: #rgb, #rrggbb, #rrggbbaa or r,g,b[,a]"),
		shadow:       fs.Bool("shadow", false, "draw a drop shadow under the text"),
		outline:      fs.Bool("outline", false, "draw a black outline around the text"),
		scale:        fs.Int("scale", watermark.DefaultScale, "image watermark scale in percent (10..500)"),
		opacity:      fs.Int("opacity", watermark.MaxOpacity, "opacity in percent (0..100)"),
		rotation:     fs.Float64("rotation", 0, "rotation in degrees, clockwise"),
		anchor:       fs.String("anchor", "bottom-right", "anchor: top-left ... bottom-right; realigns a custom position"),
		pos:          fs.String("pos", "", "custom position x,y in source pixels"),
	}
}

// build returns the spec described by the flags, starting from a template,
// the session snapshot or the defaults.
func (f *specFlags) build(store *template.Store) (watermark.Spec, error) {
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["text"] && set["image"] {
		return watermark.Spec{}, usageError("-text and -image are mutually exclusive")
	}

	spec := watermark.DefaultText("")
	switch {
	case *f.fromTemplate != "":
		t, err := store.Load(*f.fromTemplate)
		if err != nil {
			return watermark.Spec{}, err
		}
		spec = t.Spec
	case *f.fromSession:
		s, ok, err := store.LoadSession()
		if err != nil {
			return watermark.Spec{}, err
		}
		if ok {
			spec = s
		}
	}

	if set["text"] {
		spec.Kind = watermark.KindText
		spec.Text.Content = *f.text
	}
	if set["image"] {
		spec.Kind = watermark.KindImage
		spec.Image.Path = *f.image
		spec.Image.Raster = nil
	}
	if set["font"] {
		spec.Text.FontFamily = *f.font
	}
	if set["font-size"] {
		spec.Text.FontSize = *f.fontSize
	}
	if set["bold"] {
		spec.Text.Bold = *f.bold
	}
	if set["italic"] {
		spec.Text.Italic = *f.italic
	}
	if set["color"] {
		c, err := watermark.ParseColor(*f.color)
		if err != nil {
			return watermark.Spec{}, usageError("invalid -color: %v", err)
		}
		spec.Text.Color = c
	}
	if set["shadow"] {
		spec.Text.Shadow = *f.shadow
	}
	if set["outline"] {
		spec.Text.Outline = *f.outline
	}
	if set["scale"] {
		spec.Image.Scale = *f.scale
	}
	if set["opacity"] {
		spec.Opacity = *f.opacity
	}
	if set["rotation"] {
		spec.Rotation = *f.rotation
	}
	if set["anchor"] {
		a, err := parseAnchorFlag(*f.anchor)
		if err != nil {
			return watermark.Spec{}, err
		}
		spec.Placement = placement.AtAnchor(a)
	}
	if set["pos"] {
		p, err := parsePoint(*f.pos)
		if err != nil {
			return watermark.Spec{}, usageError("invalid -pos: %v", err)
		}
		spec.Placement = spec.Placement.Pin(placement.Point{X: int(math.Round(p[0])), Y: int(math.Round(p[1]))})
	}

	if err := spec.LoadRaster(); err != nil {
		return watermark.Spec{}, err
	}
	return spec, spec.Validate()
}

func validateRequired(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return usageError("missing -%s", pairs[i])
		}
	}
	return nil
}

// parsePoint reads "x,y".
func parsePoint(raw string) ([2]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return [2]float64{}, errors.New("expected format x,y")
	}
	var out [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [2]float64{}, fmt.Errorf("invalid coordinate: %q", p)
		}
		out[i] = v
	}
	return out, nil
}

// parseSize reads "WxH".
func parseSize(raw string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return 0, 0, errors.New("expected format WxH")
	}
	wi, err1 := strconv.Atoi(w)
	hi, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || wi < 0 || hi < 0 {
		return 0, 0, fmt.Errorf("invalid size: %q", raw)
	}
	return wi, hi, nil
}

func parseFormat(raw string) (codec.Format, error) {
	f, err := codec.ParseFormat(raw)
	if err != nil {
		return "", usageError("invalid -format: %v", err)
	}
	return f, nil
}

func parseAnchorFlag(raw string) (placement.Anchor, error) {
	a, err := placement.ParseAnchor(raw)
	if err != nil {
		return a, usageError("invalid anchor: %v", err)
	}
	return a, nil
}
