// Package viewport maps between source-image pixel space and a scaled,
// centered display rectangle.
package viewport

import (
	"errors"
	"image"
	"math"
)

// ErrDegenerate is returned by callers that must skip rendering because the
// viewport or source has a zero dimension.
var ErrDegenerate = errors.New("viewport has zero area")

// Vec is a point or delta in floating pixel coordinates.
type Vec struct {
	X, Y float64
}

// Round returns the nearest integer point.
func (v Vec) Round() image.Point {
	return image.Pt(int(math.Round(v.X)), int(math.Round(v.Y)))
}

// Transform scales and then translates source coordinates into a target
// raster. Export renders with Identity, the preview with a Mapper's transform.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Identity is the full-resolution transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Apply maps a source point into the target raster.
func (t Transform) Apply(v Vec) Vec {
	return Vec{X: t.OffsetX + v.X*t.Scale, Y: t.OffsetY + v.Y*t.Scale}
}

// Mapper fits a source raster into a viewport preserving aspect ratio,
// without cropping.
type Mapper struct {
	srcW, srcH   int
	viewW, viewH int
	scale        float64
	offX, offY   float64
}

// New builds a Mapper. A zero or negative dimension yields a degenerate
// mapper whose scale is 0.
func New(srcW, srcH, viewW, viewH int) Mapper {
	m := Mapper{srcW: srcW, srcH: srcH, viewW: viewW, viewH: viewH}
	if srcW <= 0 || srcH <= 0 || viewW <= 0 || viewH <= 0 {
		return m
	}
	m.scale = math.Min(float64(viewW)/float64(srcW), float64(viewH)/float64(srcH))
	m.offX = (float64(viewW) - float64(srcW)*m.scale) / 2
	m.offY = (float64(viewH) - float64(srcH)*m.scale) / 2
	return m
}

// Scale is the uniform display scale, 0 when degenerate.
func (m Mapper) Scale() float64 { return m.scale }

// Degenerate reports whether rendering must be skipped.
func (m Mapper) Degenerate() bool { return m.scale == 0 }

// Offset is the top-left corner of the scaled source inside the viewport.
func (m Mapper) Offset() Vec { return Vec{X: m.offX, Y: m.offY} }

// Transform returns the source-to-display transform.
func (m Mapper) Transform() Transform {
	return Transform{Scale: m.scale, OffsetX: m.offX, OffsetY: m.offY}
}

// DisplayRect is the area of the viewport covered by the scaled source.
func (m Mapper) DisplayRect() image.Rectangle {
	if m.Degenerate() {
		return image.Rectangle{}
	}
	minX := int(math.Round(m.offX))
	minY := int(math.Round(m.offY))
	return image.Rect(
		minX, minY,
		minX+int(math.Round(float64(m.srcW)*m.scale)),
		minY+int(math.Round(float64(m.srcH)*m.scale)),
	)
}

// ToDisplay converts a source-space point to display space.
func (m Mapper) ToDisplay(p Vec) Vec {
	return m.Transform().Apply(p)
}

// ToSource converts a display-space point to source space. A degenerate
// mapper returns the zero vector.
func (m Mapper) ToSource(p Vec) Vec {
	if m.Degenerate() {
		return Vec{}
	}
	return Vec{X: (p.X - m.offX) / m.scale, Y: (p.Y - m.offY) / m.scale}
}

// DeltaToSource converts a display-space displacement to source space. Only
// the scale applies; the offset cancels out for relative moves.
func (m Mapper) DeltaToSource(dx, dy float64) Vec {
	if m.Degenerate() {
		return Vec{}
	}
	return Vec{X: dx / m.scale, Y: dy / m.scale}
}
