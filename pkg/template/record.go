package template

import (
	"fmt"
	"strings"
	"time"

	"wmstudio/pkg/placement"
	"wmstudio/pkg/watermark"
)

const recordVersion = 1

type colorRecord struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

type textRecord struct {
	Content    string      `json:"content"`
	FontFamily string      `json:"fontFamily"`
	FontSize   int         `json:"fontSize"`
	Bold       bool        `json:"bold"`
	Italic     bool        `json:"italic"`
	Color      colorRecord `json:"color"`
	Shadow     bool        `json:"shadow"`
	Outline    bool        `json:"outline"`
}

type imageRecord struct {
	Path  string `json:"path"`
	Scale int    `json:"scale"`
}

type pointRecord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// record is the on-disk shape of a template or the session snapshot.
type record struct {
	Version        int              `json:"version"`
	Name           string           `json:"name,omitempty"`
	ContentKind    watermark.Kind   `json:"contentKind"`
	Text           textRecord       `json:"text"`
	Image          imageRecord      `json:"image"`
	Opacity        int              `json:"opacity"`
	Rotation       float64          `json:"rotation"`
	Anchor         placement.Anchor `json:"anchor"`
	CustomPosition *pointRecord     `json:"customPosition,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func newRecord(name string, s watermark.Spec, created, updated time.Time) record {
	t := s.Text
	rec := record{
		Version:     recordVersion,
		Name:        name,
		ContentKind: s.Kind,
		Text: textRecord{
			Content:    t.Content,
			FontFamily: t.FontFamily,
			FontSize:   t.FontSize,
			Bold:       t.Bold,
			Italic:     t.Italic,
			Color:      colorRecord{R: t.Color.R, G: t.Color.G, B: t.Color.B, A: t.Color.A},
			Shadow:     t.Shadow,
			Outline:    t.Outline,
		},
		Image:     imageRecord{Path: s.Image.Path, Scale: s.Image.Scale},
		Opacity:   s.Opacity,
		Rotation:  s.Rotation,
		Anchor:    s.Placement.Anchor,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if p, ok := s.Placement.Custom(); ok {
		rec.CustomPosition = &pointRecord{X: p.X, Y: p.Y}
	}
	return rec
}

// spec rebuilds the watermark. Image rasters are not stored; callers load
// them from Image.Path when needed.
func (r record) spec() watermark.Spec {
	c := r.Text.Color
	s := watermark.Spec{
		Kind: r.ContentKind,
		Text: watermark.Text{
			Content:    r.Text.Content,
			FontFamily: r.Text.FontFamily,
			FontSize:   r.Text.FontSize,
			Bold:       r.Text.Bold,
			Italic:     r.Text.Italic,
			Color:      watermark.Color{R: c.R, G: c.G, B: c.B, A: c.A},
			Shadow:     r.Text.Shadow,
			Outline:    r.Text.Outline,
		},
		Image:     watermark.Image{Path: r.Image.Path, Scale: r.Image.Scale},
		Opacity:   r.Opacity,
		Rotation:  r.Rotation,
		Placement: placement.AtAnchor(r.Anchor),
	}
	if r.CustomPosition != nil {
		s.Placement = s.Placement.Pin(placement.Point{X: r.CustomPosition.X, Y: r.CustomPosition.Y})
	}
	return s
}

func (r record) check() error {
	if r.Version != recordVersion {
		return fmt.Errorf("unsupported record version %d", r.Version)
	}
	return checkSpec(r.spec())
}

// checkSpec validates a spec whose image raster is not loaded; an image spec
// only needs a path.
func checkSpec(s watermark.Spec) error {
	if s.Kind == watermark.KindImage && strings.TrimSpace(s.Image.Path) == "" {
		return fmt.Errorf("%w: image watermark has no path", watermark.ErrMissingSource)
	}
	return s.CheckParams()
}
