package placement

// Point is a pixel position in source-image space. For image watermarks it
// is the top-left corner of the box; for text it is the left end of the glyph
// baseline.
type Point struct {
	X, Y int
}

// Size is a raster size in pixels.
type Size struct {
	Width, Height int
}

// Box describes the unrotated watermark extent. Baseline marks text content,
// whose vertical placement is relative to the glyph baseline rather than the
// box top; Ascent is the distance from the box top to that baseline.
type Box struct {
	Width    int
	Height   int
	Ascent   int
	Baseline bool
}

// TopLeft converts a placement point to the box's top-left corner.
func (b Box) TopLeft(p Point) Point {
	if b.Baseline {
		return Point{X: p.X, Y: p.Y - b.Ascent}
	}
	return p
}

// Resolve computes the placement point of box on a src-sized raster for the
// given anchor. Text rows are baseline-relative: the top row puts the box top
// at the margin, the bottom row puts the baseline at the margin. Image rows are
// box-relative.
func Resolve(a Anchor, src Size, box Box) Point {
	var p Point
	switch a.Column() {
	case 0:
		p.X = Margin
	case 1:
		p.X = (src.Width - box.Width) / 2
	default:
		p.X = src.Width - box.Width - Margin
	}

	if box.Baseline {
		switch a.Row() {
		case 0:
			p.Y = Margin + box.Ascent
		case 1:
			p.Y = (src.Height + box.Ascent) / 2
		default:
			p.Y = src.Height - Margin
		}
		return p
	}

	switch a.Row() {
	case 0:
		p.Y = Margin
	case 1:
		p.Y = (src.Height - box.Height) / 2
	default:
		p.Y = src.Height - box.Height - Margin
	}
	return p
}

// Placement is either an anchor or a pinned custom point. The anchor is kept
// while a custom point is active so that Realign can return to it.
type Placement struct {
	Anchor Anchor
	custom Point
	pinned bool
}

// AtAnchor returns an anchor-driven placement.
func AtAnchor(a Anchor) Placement {
	return Placement{Anchor: a}
}

// Pin returns p with a custom point that overrides the anchor.
func (p Placement) Pin(pt Point) Placement {
	p.custom = pt
	p.pinned = true
	return p
}

// WithAnchor changes the retained anchor without moving a pinned watermark.
func (p Placement) WithAnchor(a Anchor) Placement {
	p.Anchor = a
	return p
}

// Realign drops the custom point so the anchor becomes authoritative again.
func (p Placement) Realign() Placement {
	p.custom = Point{}
	p.pinned = false
	return p
}

// Custom returns the pinned point, if any.
func (p Placement) Custom() (Point, bool) {
	return p.custom, p.pinned
}

// IsCustom reports whether a pinned point is authoritative.
func (p Placement) IsCustom() bool { return p.pinned }

// Resolve returns the pinned point unchanged, or the anchor-derived point.
func (p Placement) Resolve(src Size, box Box) Point {
	if p.pinned {
		return p.custom
	}
	return Resolve(p.Anchor, src, box)
}
