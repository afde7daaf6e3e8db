// Package fonts resolves font family names to faces. Unknown families and
// unreadable font files fall back to the embedded Go fonts, so a face is
// always available.
package fonts

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/freetype/truetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// DefaultFamily is the embedded family used when nothing else matches.
const DefaultFamily = "Go"

const builtinPrefix = "builtin:"

// Style selects the weight/slant variant of a family.
type Style int

const (
	Regular Style = iota
	Bold
	Italic
	BoldItalic
)

// StyleOf maps bold/italic flags to a Style.
func StyleOf(bold, italic bool) Style {
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	default:
		return Regular
	}
}

var builtin = map[string][]byte{
	builtinPrefix + "go-regular":     goregular.TTF,
	builtinPrefix + "go-bold":        gobold.TTF,
	builtinPrefix + "go-italic":      goitalic.TTF,
	builtinPrefix + "go-bold-italic": gobolditalic.TTF,
}

type faceKey struct {
	path string
	size int32
}

// Registry maps family names to font files and caches parsed fonts and sized
// faces. It is not safe for concurrent use.
type Registry struct {
	families map[string]map[Style]string
	names    map[string]string
	fonts    *lru.Cache[string, *opentype.Font]
	faces    *lru.Cache[faceKey, font.Face]
	log      *zap.Logger
}

// NewRegistry scans dirs (non-recursively) for .ttf/.otf files. Files that
// cannot be parsed are logged and skipped.
func NewRegistry(log *zap.Logger, cacheSize int, dirs ...string) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 64
	}
	fontCache, _ := lru.New[string, *opentype.Font](cacheSize)
	faceCache, _ := lru.NewWithEvict[faceKey, font.Face](cacheSize, func(_ faceKey, f font.Face) {
		_ = f.Close()
	})
	r := &Registry{
		families: make(map[string]map[Style]string),
		names:    make(map[string]string),
		fonts:    fontCache,
		faces:    faceCache,
		log:      log,
	}
	r.add(DefaultFamily, Regular, builtinPrefix+"go-regular")
	r.add(DefaultFamily, Bold, builtinPrefix+"go-bold")
	r.add(DefaultFamily, Italic, builtinPrefix+"go-italic")
	r.add(DefaultFamily, BoldItalic, builtinPrefix+"go-bold-italic")

	for _, dir := range dirs {
		r.scan(dir)
	}
	return r
}

func (r *Registry) scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.log.Warn("font directory unreadable", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isFontFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := r.Register(path); err != nil {
			r.log.Debug("skip font file", zap.String("path", path), zap.Error(err))
		}
	}
}

// Register reads the family and subfamily names of a font file and makes it
// available under that family. It returns the family name.
func (r *Registry) Register(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	family, sub, err := fontNames(data)
	if err != nil {
		return "", fmt.Errorf("read font names %q: %w", path, err)
	}
	r.add(family, styleFromSubfamily(sub), path)
	return family, nil
}

// Families returns the registered family names, sorted.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether family is registered.
func (r *Registry) Has(family string) bool {
	_, ok := r.families[strings.ToLower(strings.TrimSpace(family))]
	return ok
}

// Face returns a face for family at size points (72 DPI, so points equal
// pixels). family may also be a path to a font file. The result is never nil.
func (r *Registry) Face(family string, style Style, size float64) font.Face {
	if size <= 0 || math.IsNaN(size) {
		size = 1
	}
	for _, path := range r.candidates(family, style) {
		face, err := r.face(path, size)
		if err == nil {
			return face
		}
		r.log.Warn("failed to load font, trying fallback", zap.String("font", path), zap.Error(err))
	}
	return basicfont.Face7x13
}

func (r *Registry) candidates(family string, style Style) []string {
	var out []string
	trimmed := strings.TrimSpace(family)
	if trimmed != "" && isFontFile(trimmed) {
		if _, err := os.Stat(trimmed); err == nil {
			out = append(out, trimmed)
		}
	}
	if styles, ok := r.families[strings.ToLower(trimmed)]; ok {
		if p, ok := styles[style]; ok {
			out = append(out, p)
		}
		if p, ok := styles[Regular]; ok && style != Regular {
			out = append(out, p)
		}
	} else if trimmed != "" && len(out) == 0 {
		r.log.Debug("unknown font family, using default", zap.String("family", trimmed))
	}
	out = append(out, r.families[strings.ToLower(DefaultFamily)][style])
	if style != Regular {
		out = append(out, r.families[strings.ToLower(DefaultFamily)][Regular])
	}
	return out
}

func (r *Registry) face(path string, size float64) (font.Face, error) {
	key := faceKey{path: path, size: int32(math.Round(size * 64))}
	if f, ok := r.faces.Get(key); ok {
		return f, nil
	}
	parsed, err := r.font(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces.Add(key, f)
	return f, nil
}

func (r *Registry) font(path string) (*opentype.Font, error) {
	if f, ok := r.fonts.Get(path); ok {
		return f, nil
	}
	data, ok := builtin[path]
	if !ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	r.fonts.Add(path, f)
	return f, nil
}

func (r *Registry) add(family string, style Style, path string) {
	key := strings.ToLower(family)
	styles, ok := r.families[key]
	if !ok {
		styles = make(map[Style]string)
		r.families[key] = styles
		r.names[key] = family
	}
	if _, exists := styles[style]; !exists {
		styles[style] = path
	}
}

// fontNames reads family and subfamily from the name table. TrueType outlines
// go through freetype; CFF-flavoured OpenType files fall back to sfnt.
func fontNames(data []byte) (string, string, error) {
	if tt, err := truetype.Parse(data); err == nil {
		family := tt.Name(truetype.NameIDFontFamily)
		if family != "" {
			return family, tt.Name(truetype.NameIDFontSubfamily), nil
		}
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return "", "", err
	}
	var buf sfnt.Buffer
	family, err := f.Name(&buf, sfnt.NameIDFamily)
	if err != nil {
		return "", "", err
	}
	if family == "" {
		return "", "", errors.New("font has no family name")
	}
	sub, _ := f.Name(&buf, sfnt.NameIDSubfamily)
	return family, sub, nil
}

func styleFromSubfamily(sub string) Style {
	s := strings.ToLower(sub)
	bold := strings.Contains(s, "bold") || strings.Contains(s, "black") || strings.Contains(s, "heavy")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	return StyleOf(bold, italic)
}

func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}
