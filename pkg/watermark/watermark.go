// Package watermark describes a watermark and draws it onto rasters. The same
// Render path serves the scaled preview and the full-resolution export; only
// the viewport.Transform differs.
package watermark

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"wmstudio/pkg/fonts"
	"wmstudio/pkg/placement"
	"wmstudio/pkg/viewport"
)

const (
	shadowOffset = 2
	outlineRange = 1
	layerPad     = 3
)

// Renderer measures and draws watermarks. It keeps no per-call state besides
// the font caches behind its registry.
type Renderer struct {
	fonts *fonts.Registry
	log   *zap.Logger
}

// NewRenderer returns a Renderer backed by reg. A nil registry gets one with
// only the embedded fonts.
func NewRenderer(reg *fonts.Registry, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = fonts.NewRegistry(log, 0)
	}
	return &Renderer{fonts: reg, log: log}
}

// Fonts returns the registry used for text faces.
func (r *Renderer) Fonts() *fonts.Registry { return r.fonts }

// Measure returns the unrotated box of spec's content at the given scale.
// Text boxes are baseline-relative.
func (r *Renderer) Measure(spec Spec, scale float64) placement.Box {
	switch spec.Kind {
	case KindText:
		return textBox(r.face(spec.Text, scale), spec.Text.Content)
	case KindImage:
		w, h := imageSize(spec.Image, scale)
		return placement.Box{Width: w, Height: h}
	}
	return placement.Box{}
}

// Resolve returns spec's placement point on a src-sized raster.
func (r *Renderer) Resolve(spec Spec, src placement.Size) placement.Point {
	return spec.Placement.Resolve(src, r.Measure(spec, 1))
}

// Render draws spec onto dst with its placement point at (source-space) at,
// mapped through xf. It only draws; dst keeps no transform state afterwards.
func (r *Renderer) Render(dst *image.NRGBA, spec Spec, at placement.Point, xf viewport.Transform) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if xf.Scale <= 0 {
		return viewport.ErrDegenerate
	}
	if spec.Opacity == 0 || (spec.Kind == KindText && spec.Text.Color.A == 0) {
		r.log.Warn("watermark fully transparent; nothing drawn")
		return nil
	}

	pos := xf.Apply(viewport.Vec{X: float64(at.X), Y: float64(at.Y)}).Round()
	rot := spec.NormalizedRotation()
	if spec.Kind == KindText {
		r.renderText(dst, spec, pos, xf.Scale, rot)
	} else {
		r.renderImage(dst, spec, pos, xf.Scale, rot)
	}
	return nil
}

// Apply renders spec onto a copy of src at full resolution and returns the
// copy together with the resolved placement point.
func (r *Renderer) Apply(src image.Image, spec Spec) (*image.NRGBA, placement.Point, error) {
	if err := spec.Validate(); err != nil {
		return nil, placement.Point{}, err
	}
	dst := imaging.Clone(src)
	b := dst.Bounds()
	at := r.Resolve(spec, placement.Size{Width: b.Dx(), Height: b.Dy()})
	if err := r.Render(dst, spec, at, viewport.Identity()); err != nil {
		return nil, placement.Point{}, err
	}
	return dst, at, nil
}

func (r *Renderer) renderText(dst *image.NRGBA, spec Spec, dot image.Point, scale, rot float64) {
	t := spec.Text
	face := r.face(t, scale)
	fx := newTextEffects(t, spec.Opacity, scale)
	if rot == 0 {
		fx.draw(dst, face, dot, t.Content)
		return
	}

	// Layer centred on the box centre, big enough for glyph overhang and effects.
	box := textBox(face, t.Content)
	cx := float64(box.Width) / 2
	cy := float64(box.Height)/2 - float64(box.Ascent)
	bounds, adv := font.BoundString(face, t.Content)
	minX := math.Min(float64(bounds.Min.X.Floor()), 0)
	maxX := math.Max(float64(bounds.Max.X.Ceil()), float64(adv.Ceil()))
	minY := math.Min(float64(bounds.Min.Y.Floor()), float64(-box.Ascent))
	maxY := math.Max(float64(bounds.Max.Y.Ceil()), float64(box.Height-box.Ascent))
	hx := math.Ceil(math.Max(cx-minX, maxX-cx)) + layerPad + float64(fx.shadowOffset)
	hy := math.Ceil(math.Max(cy-minY, maxY-cy)) + layerPad + float64(fx.shadowOffset)

	layer := image.NewNRGBA(image.Rect(0, 0, int(2*hx), int(2*hy)))
	ldot := image.Pt(int(math.Round(hx-cx)), int(math.Round(hy-cy)))
	fx.draw(layer, face, ldot, t.Content)

	centre := viewport.Vec{X: float64(dot.X-ldot.X) + hx, Y: float64(dot.Y-ldot.Y) + hy}
	r.pasteRotated(dst, layer, centre, rot)
}

func (r *Renderer) renderImage(dst *image.NRGBA, spec Spec, pos image.Point, scale, rot float64) {
	w, h := imageSize(spec.Image, scale)
	mark := imaging.Resize(spec.Image.Raster, w, h, imaging.Lanczos)
	if spec.Opacity < MaxOpacity {
		setOpacity(mark, float64(spec.Opacity)/MaxOpacity)
	}
	if rot == 0 {
		draw.Draw(dst, image.Rect(pos.X, pos.Y, pos.X+w, pos.Y+h), mark, image.Point{}, draw.Over)
		return
	}
	centre := viewport.Vec{X: float64(pos.X) + float64(w)/2, Y: float64(pos.Y) + float64(h)/2}
	r.pasteRotated(dst, mark, centre, rot)
}

// pasteRotated rotates layer about its centre, clockwise on screen for
// positive degrees, and composites it so that centre lands on centre.
func (r *Renderer) pasteRotated(dst *image.NRGBA, layer image.Image, centre viewport.Vec, deg float64) {
	rotated := imaging.Rotate(layer, -deg, color.Transparent)
	bbox, ok := tightAlphaBounds(rotated)
	if !ok {
		r.log.Warn("rotated watermark is empty; watermark not visible")
		return
	}
	rb := rotated.Bounds()
	origin := viewport.Vec{
		X: centre.X - float64(rb.Dx())/2,
		Y: centre.Y - float64(rb.Dy())/2,
	}.Round()
	draw.Draw(dst, bbox.Add(origin), rotated, bbox.Min, draw.Over)
}

func (r *Renderer) face(t Text, scale float64) font.Face {
	return r.fonts.Face(t.FontFamily, t.Style(), float64(t.FontSize)*scale)
}

func textBox(face font.Face, s string) placement.Box {
	m := face.Metrics()
	asc := m.Ascent.Ceil()
	desc := m.Descent.Ceil()
	return placement.Box{
		Width:    font.MeasureString(face, s).Ceil(),
		Height:   asc + desc,
		Ascent:   asc,
		Baseline: true,
	}
}

func imageSize(img Image, scale float64) (int, int) {
	if img.Raster == nil {
		return 0, 0
	}
	b := img.Raster.Bounds()
	f := float64(img.Scale) / 100 * scale
	return max(int(float64(b.Dx())*f), 1), max(int(float64(b.Dy())*f), 1)
}

// textEffects holds the colours of the shadow, outline and primary passes.
type textEffects struct {
	primary      color.NRGBA
	shadow       color.NRGBA
	outline      color.NRGBA
	withShadow   bool
	withOutline  bool
	shadowOffset int
}

func newTextEffects(t Text, opacity int, scale float64) textEffects {
	a := effectiveAlpha(t.Color.A, opacity)
	primary := t.Color.NRGBA()
	primary.A = a
	return textEffects{
		primary:      primary,
		shadow:       color.NRGBA{A: a / 2},
		outline:      color.NRGBA{A: a},
		withShadow:   t.Shadow,
		withOutline:  t.Outline,
		shadowOffset: max(int(math.Round(shadowOffset*scale)), 1),
	}
}

// draw paints shadow, then outline, then the primary text with its baseline
// origin at dot. The primary pass always lands on top.
func (fx textEffects) draw(dst *image.NRGBA, face font.Face, dot image.Point, text string) {
	if fx.withShadow {
		drawTextAt(dst, face, dot.X+fx.shadowOffset, dot.Y+fx.shadowOffset, text, fx.shadow)
	}
	if fx.withOutline {
		for dx := -outlineRange; dx <= outlineRange; dx++ {
			for dy := -outlineRange; dy <= outlineRange; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				drawTextAt(dst, face, dot.X+dx, dot.Y+dy, text, fx.outline)
			}
		}
	}
	drawTextAt(dst, face, dot.X, dot.Y, text, fx.primary)
}

func drawTextAt(dst *image.NRGBA, face font.Face, x, y int, text string, col color.NRGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func effectiveAlpha(a uint8, opacity int) uint8 {
	return uint8(math.Round(float64(a) * float64(opacity) / MaxOpacity))
}

// setOpacity scales the alpha channel of img in place.
func setOpacity(img *image.NRGBA, opacity float64) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = uint8(math.Round(float64(row[i]) * opacity))
		}
	}
}

func tightAlphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A == 0 {
				continue
			}
			found = true
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if !found {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
