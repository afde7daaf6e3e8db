package placement

import (
	"math"

	"wmstudio/pkg/viewport"
)

// Resolver owns the interactive placement state of one preview session.
// BeginDrag, ContinueDrag, EndDrag, SetAnchor and ApplyAnchor are the only
// mutation entry points.
type Resolver struct {
	placement Placement

	dragging    bool
	mapper      viewport.Mapper
	dragOrigin  viewport.Vec
	customStart Point
}

// NewResolver starts from p.
func NewResolver(p Placement) *Resolver {
	return &Resolver{placement: p}
}

// Placement returns a copy of the current state.
func (r *Resolver) Placement() Placement { return r.placement }

// Reset replaces the state and cancels any drag in progress.
func (r *Resolver) Reset(p Placement) {
	r.placement = p
	r.dragging = false
}

// Dragging reports whether a drag gesture is active.
func (r *Resolver) Dragging() bool { return r.dragging }

// Resolve returns the source-space placement point for a box on src.
func (r *Resolver) Resolve(src Size, box Box) Point {
	return r.placement.Resolve(src, box)
}

// SetAnchor changes the anchor. A pinned watermark stays where it is unless
// force is set, in which case the anchor is applied immediately and any drag
// in progress ends.
func (r *Resolver) SetAnchor(a Anchor, force bool) {
	r.placement = r.placement.WithAnchor(a)
	if force {
		r.placement = r.placement.Realign()
		r.dragging = false
	}
}

// ApplyAnchor drops any custom point so the anchor is authoritative.
func (r *Resolver) ApplyAnchor() {
	r.placement = r.placement.Realign()
	r.dragging = false
}

// BeginDrag hit-tests at (display space) against the watermark's display box.
// On a hit the current resolved point becomes the custom point and a drag
// starts. Edges count as inside.
func (r *Resolver) BeginDrag(m viewport.Mapper, src Size, box Box, at viewport.Vec) bool {
	if m.Degenerate() {
		return false
	}
	pt := r.placement.Resolve(src, box)
	tl := box.TopLeft(pt)
	origin := m.ToDisplay(viewport.Vec{X: float64(tl.X), Y: float64(tl.Y)})
	w := float64(box.Width) * m.Scale()
	h := float64(box.Height) * m.Scale()
	if at.X < origin.X || at.X > origin.X+w || at.Y < origin.Y || at.Y > origin.Y+h {
		return false
	}

	r.placement = r.placement.Pin(pt)
	r.dragging = true
	r.mapper = m
	r.dragOrigin = at
	r.customStart = pt
	return true
}

// ContinueDrag moves the custom point by the source-space equivalent of the
// displacement since BeginDrag. It reports false when no drag is active.
func (r *Resolver) ContinueDrag(at viewport.Vec) bool {
	if !r.dragging {
		return false
	}
	d := r.mapper.DeltaToSource(at.X-r.dragOrigin.X, at.Y-r.dragOrigin.Y)
	r.placement = r.placement.Pin(Point{
		X: r.customStart.X + int(math.Round(d.X)),
		Y: r.customStart.Y + int(math.Round(d.Y)),
	})
	return true
}

// EndDrag finishes the gesture; the custom point stays pinned.
func (r *Resolver) EndDrag() {
	r.dragging = false
}
