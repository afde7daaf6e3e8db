// Package placement resolves where a watermark sits on a source image, either
// from one of nine grid anchors or from a user-pinned point.
package placement

import (
	"fmt"
	"strings"
)

// Anchor is one of the nine positions on a 3x3 grid.
type Anchor int

const (
	TopLeft Anchor = iota
	TopCenter
	TopRight
	CenterLeft
	Center
	CenterRight
	BottomLeft
	BottomCenter
	BottomRight
)

// Margin is the distance in source pixels kept from the image edges.
const Margin = 20

var anchorNames = [...]string{
	TopLeft:      "TOP_LEFT",
	TopCenter:    "TOP_CENTER",
	TopRight:     "TOP_RIGHT",
	CenterLeft:   "CENTER_LEFT",
	Center:       "CENTER",
	CenterRight:  "CENTER_RIGHT",
	BottomLeft:   "BOTTOM_LEFT",
	BottomCenter: "BOTTOM_CENTER",
	BottomRight:  "BOTTOM_RIGHT",
}

// Anchors lists every anchor in grid order.
func Anchors() []Anchor {
	return []Anchor{TopLeft, TopCenter, TopRight, CenterLeft, Center, CenterRight, BottomLeft, BottomCenter, BottomRight}
}

// Valid reports whether a is one of the nine anchors.
func (a Anchor) Valid() bool {
	return a >= TopLeft && a <= BottomRight
}

func (a Anchor) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Anchor(%d)", int(a))
	}
	return anchorNames[a]
}

// Column returns 0, 1 or 2 for left, center and right.
func (a Anchor) Column() int { return int(a) % 3 }

// Row returns 0, 1 or 2 for top, middle and bottom.
func (a Anchor) Row() int { return int(a) / 3 }

// ParseAnchor accepts TOP_LEFT, top-left, top_left and similar spellings.
func ParseAnchor(s string) (Anchor, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "MIDDLE" || norm == "CENTER_CENTER" {
		norm = "CENTER"
	}
	for i, name := range anchorNames {
		if name == norm {
			return Anchor(i), nil
		}
	}
	return BottomRight, fmt.Errorf("unknown anchor %q", s)
}

func (a Anchor) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid anchor %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Anchor) UnmarshalText(b []byte) error {
	v, err := ParseAnchor(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
