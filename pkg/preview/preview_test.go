package preview

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wmstudio/pkg/placement"
	"wmstudio/pkg/viewport"
	"wmstudio/pkg/watermark"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// inkBounds returns the area whose pixels are not plain black.
func inkBounds(img *image.NRGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.R > 60 || c.G > 60 || c.B > 60 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func newSession(spec watermark.Spec) *Session {
	r := watermark.NewRenderer(nil, zap.NewNop())
	return NewSession(r, solid(1000, 800, color.NRGBA{A: 255}), spec, zap.NewNop())
}

func TestDefaultViewport(t *testing.T) {
	s := newSession(watermark.DefaultText("x"))
	m := s.Mapper()
	require.InDelta(t, 0.4375, m.Scale(), 1e-9)

	img, err := s.Render()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), img.Bounds())
	// Letterbox bars keep the background colour.
	require.Equal(t, s.Background, img.NRGBAAt(0, 0))
}

func TestRenderDegenerateViewport(t *testing.T) {
	s := newSession(watermark.DefaultText("x"))
	s.SetViewport(0, 300)
	_, err := s.Render()
	require.ErrorIs(t, err, viewport.ErrDegenerate)
	require.False(t, s.BeginDrag(0, 0))
}

func TestRenderInvalidSpec(t *testing.T) {
	s := newSession(watermark.DefaultText(""))
	_, err := s.Render()
	require.ErrorIs(t, err, watermark.ErrMissingSource)
}

func TestPreviewMatchesExportGeometry(t *testing.T) {
	mark := solid(120, 60, color.NRGBA{R: 255, A: 255})
	tests := []struct {
		name string
		spec watermark.Spec
	}{
		{"image centre rotated", func() watermark.Spec {
			s := watermark.DefaultImage("mark.png", mark)
			s.Placement = placement.AtAnchor(placement.Center)
			s.Rotation = 30
			return s
		}()},
		{"image bottom right", watermark.DefaultImage("mark.png", mark)},
		{"text top left", func() watermark.Spec {
			s := watermark.DefaultText("WM")
			s.Text.FontSize = 100
			s.Placement = placement.AtAnchor(placement.TopLeft)
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := watermark.NewRenderer(nil, zap.NewNop())
			src := solid(1000, 800, color.NRGBA{A: 255})

			full, _, err := r.Apply(src, tt.spec)
			require.NoError(t, err)
			want := inkBounds(full)
			require.False(t, want.Empty())

			s := NewSession(r, src, tt.spec, zap.NewNop())
			s.SetViewport(500, 400)
			small, err := s.Render()
			require.NoError(t, err)
			got := inkBounds(small)

			require.InDelta(t, float64(want.Min.X)/2, got.Min.X, 3)
			require.InDelta(t, float64(want.Min.Y)/2, got.Min.Y, 3)
			require.InDelta(t, float64(want.Max.X)/2, got.Max.X, 3)
			require.InDelta(t, float64(want.Max.Y)/2, got.Max.Y, 3)
		})
	}
}

func TestDragThenAnchorKeepsPosition(t *testing.T) {
	mark := solid(100, 40, color.NRGBA{G: 255, A: 255})
	s := newSession(watermark.DefaultImage("mark.png", mark))
	s.SetViewport(500, 400)
	require.Equal(t, placement.Point{X: 880, Y: 740}, s.Point())

	// Grab the middle of the watermark in display space.
	require.True(t, s.BeginDrag(465, 380))
	require.True(t, s.ContinueDrag(465-415, 380-345))
	s.EndDrag()
	require.Equal(t, placement.Point{X: 50, Y: 50}, s.Point())

	s.SetAnchor(placement.TopLeft, false)
	require.Equal(t, placement.Point{X: 50, Y: 50}, s.Point())

	spec := s.Spec()
	p, ok := spec.Placement.Custom()
	require.True(t, ok)
	require.Equal(t, placement.Point{X: 50, Y: 50}, p)
	require.Equal(t, placement.TopLeft, spec.Placement.Anchor)

	s.ApplyAnchor()
	require.Equal(t, placement.Point{X: 20, Y: 20}, s.Point())
}

func TestDragMissLeavesPlacement(t *testing.T) {
	s := newSession(watermark.DefaultText("SAMPLE"))
	s.SetViewport(500, 400)
	before := s.Point()
	require.False(t, s.BeginDrag(1, 1))
	require.False(t, s.ContinueDrag(100, 100))
	s.EndDrag()
	require.Equal(t, before, s.Point())
}

func TestSetSpecKeepsInteractivePlacement(t *testing.T) {
	s := newSession(watermark.DefaultText("one"))
	s.ResetPlacement(placement.AtAnchor(placement.Center).Pin(placement.Point{X: 11, Y: 22}))

	next := watermark.DefaultText("two")
	next.Text.Color = watermark.Black
	s.SetSpec(next)

	got := s.Spec()
	require.Equal(t, "two", got.Text.Content)
	p, ok := got.Placement.Custom()
	require.True(t, ok)
	require.Equal(t, placement.Point{X: 11, Y: 22}, p)
}
