// Package preview drives the interactive, scaled-down view of one source
// image: rendering through a viewport mapper and turning pointer gestures
// into placement changes.
package preview

import (
	"image"
	"image/color"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"wmstudio/pkg/placement"
	"wmstudio/pkg/viewport"
	"wmstudio/pkg/watermark"
)

const (
	DefaultWidth  = 450
	DefaultHeight = 350
)

// Session holds the preview state for one source image. It is meant to be
// driven from a single goroutine.
type Session struct {
	renderer *watermark.Renderer
	log      *zap.Logger

	source     image.Image
	size       placement.Size
	spec       watermark.Spec
	resolver   *placement.Resolver
	viewW      int
	viewH      int
	Background color.NRGBA
}

// NewSession starts a preview of source with spec at the default viewport.
func NewSession(r *watermark.Renderer, source image.Image, spec watermark.Spec, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	b := source.Bounds()
	return &Session{
		renderer:   r,
		log:        log,
		source:     source,
		size:       placement.Size{Width: b.Dx(), Height: b.Dy()},
		spec:       spec,
		resolver:   placement.NewResolver(spec.Placement),
		viewW:      DefaultWidth,
		viewH:      DefaultHeight,
		Background: color.NRGBA{R: 64, G: 64, B: 64, A: 255},
	}
}

// SetViewport changes the display size.
func (s *Session) SetViewport(w, h int) {
	s.viewW, s.viewH = w, h
}

// Mapper returns the current source/display mapping.
func (s *Session) Mapper() viewport.Mapper {
	return viewport.New(s.size.Width, s.size.Height, s.viewW, s.viewH)
}

// SourceSize returns the size of the previewed image.
func (s *Session) SourceSize() placement.Size { return s.size }

// Spec returns a copy of the current spec carrying the interactive placement,
// ready to hand to the exporter or the template store.
func (s *Session) Spec() watermark.Spec {
	out := s.spec.Clone()
	out.Placement = s.resolver.Placement()
	return out
}

// SetSpec replaces the watermark content and parameters. The interactive
// placement is kept.
func (s *Session) SetSpec(spec watermark.Spec) {
	s.spec = spec
}

// ResetPlacement replaces the placement and cancels any drag.
func (s *Session) ResetPlacement(p placement.Placement) {
	s.resolver.Reset(p)
}

// Point returns the resolved source-space placement point.
func (s *Session) Point() placement.Point {
	return s.resolver.Resolve(s.size, s.box())
}

// Render draws the scaled source and the watermark into a viewport-sized
// canvas. A zero-sized viewport returns viewport.ErrDegenerate.
func (s *Session) Render() (*image.NRGBA, error) {
	m := s.Mapper()
	if m.Degenerate() {
		return nil, viewport.ErrDegenerate
	}
	dst := image.NewNRGBA(image.Rect(0, 0, s.viewW, s.viewH))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(s.Background), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, m.DisplayRect(), s.source, s.source.Bounds(), xdraw.Over, nil)

	spec := s.Spec()
	if err := s.renderer.Render(dst, spec, s.Point(), m.Transform()); err != nil {
		return nil, err
	}
	return dst, nil
}

// BeginDrag starts a drag if (x, y) in display space hits the watermark.
func (s *Session) BeginDrag(x, y float64) bool {
	hit := s.resolver.BeginDrag(s.Mapper(), s.size, s.box(), viewport.Vec{X: x, Y: y})
	if hit {
		s.log.Debug("drag started", zap.Float64("x", x), zap.Float64("y", y))
	}
	return hit
}

// ContinueDrag moves the watermark with the pointer.
func (s *Session) ContinueDrag(x, y float64) bool {
	return s.resolver.ContinueDrag(viewport.Vec{X: x, Y: y})
}

// EndDrag finishes the gesture.
func (s *Session) EndDrag() {
	if s.resolver.Dragging() {
		p := s.Point()
		s.log.Debug("drag finished", zap.Int("x", p.X), zap.Int("y", p.Y))
	}
	s.resolver.EndDrag()
}

// SetAnchor selects an anchor; a dragged watermark stays put unless force.
func (s *Session) SetAnchor(a placement.Anchor, force bool) {
	s.resolver.SetAnchor(a, force)
}

// ApplyAnchor realigns the watermark to its anchor.
func (s *Session) ApplyAnchor() {
	s.resolver.ApplyAnchor()
}

func (s *Session) box() placement.Box {
	return s.renderer.Measure(s.spec, 1)
}
