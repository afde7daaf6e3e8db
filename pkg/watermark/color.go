package watermark

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a straight-alpha RGBA colour.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Black = Color{A: 255}
)

// NRGBA converts c for drawing.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Hex formats c as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa and r,g,b[,a].
func ParseColor(s string) (Color, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return Color{}, errors.New("color must not be empty")
	}
	if strings.Contains(str, ",") {
		return parseRGB(str)
	}
	str = strings.TrimPrefix(str, "#")
	switch len(str) {
	case 3:
		str = fmt.Sprintf("%c%c%c%c%c%c", str[0], str[0], str[1], str[1], str[2], str[2])
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid color format: %q", s)
	}

	v, err := strconv.ParseUint(str, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color format: %q", s)
	}
	if len(str) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseRGB(raw string) (Color, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, errors.New("expected format r,g,b or r,g,b,a")
	}
	vals := [4]uint8{3: 255}
	for i, part := range parts {
		p := strings.TrimSpace(part)
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("invalid channel: %q", p)
		}
		vals[i] = uint8(v)
	}
	return Color{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, nil
}
