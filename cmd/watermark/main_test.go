package main

import (
	"flag"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wmstudio/pkg/codec"
	"wmstudio/pkg/placement"
	"wmstudio/pkg/template"
	"wmstudio/pkg/watermark"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	require.NoError(t, codec.Save(path, img, codec.EncodeOptions{Format: codec.PNG}))
}

func TestSpecFlagsBuild(t *testing.T) {
	store, err := template.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	sf := addSpecFlags(fs)
	require.NoError(t, fs.Parse([]string{"-text", "Hi", "-color", "#ff000080", "-anchor", "top-left", "-pos", "12,34.6", "-opacity", "40"}))

	spec, err := sf.build(store)
	require.NoError(t, err)
	require.Equal(t, "Hi", spec.Text.Content)
	require.Equal(t, watermark.Color{R: 255, A: 128}, spec.Text.Color)
	require.Equal(t, placement.TopLeft, spec.Placement.Anchor)
	p, ok := spec.Placement.Custom()
	require.True(t, ok)
	require.Equal(t, placement.Point{X: 12, Y: 35}, p)
	require.Equal(t, 40, spec.Opacity)
}

func TestSpecFlagsFromTemplate(t *testing.T) {
	store, err := template.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	saved := watermark.DefaultText("stored")
	saved.Rotation = 15
	require.NoError(t, store.Save("mine", saved))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	sf := addSpecFlags(fs)
	require.NoError(t, fs.Parse([]string{"-template", "mine", "-opacity", "50"}))
	spec, err := sf.build(store)
	require.NoError(t, err)
	require.Equal(t, "stored", spec.Text.Content)
	require.Equal(t, 15.0, spec.Rotation)
	require.Equal(t, 50, spec.Opacity)
}

func TestSpecFlagsErrors(t *testing.T) {
	store, err := template.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	tests := [][]string{
		{"-text", "a", "-image", "b.png"},
		{"-text", "a", "-color", "nope"},
		{"-text", "a", "-anchor", "upstairs"},
		{"-text", "a", "-pos", "1"},
		{"-text", "a", "-opacity", "300"},
		{"-text", " "},
	}
	for _, args := range tests {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		sf := addSpecFlags(fs)
		require.NoError(t, fs.Parse(args))
		_, err := sf.build(store)
		require.Error(t, err, "%v", args)
		require.Equal(t, 2, exitCode(err), "%v", args)
	}
}

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("640x480")
	require.NoError(t, err)
	require.Equal(t, 640, w)
	require.Equal(t, 480, h)

	_, _, err = parseSize("640")
	require.Error(t, err)
	_, _, err = parseSize("ax4")
	require.Error(t, err)
}

func TestRunExportAndTemplates(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WM_TEMPLATES_DIR", filepath.Join(home, "store"))
	in := filepath.Join(home, "in")
	out := filepath.Join(home, "out")
	writePNG(t, filepath.Join(in, "a.png"), 300, 200)
	writePNG(t, filepath.Join(in, "b.png"), 200, 300)
	require.NoError(t, os.WriteFile(filepath.Join(in, "c.jpg"), []byte("broken"), 0o644))

	code := run([]string{"export", "-out", out, "-text", "CLI", "-font-size", "20", "-save-template", "cli", "-metrics-file", filepath.Join(home, "wm.prom"), in})
	require.Equal(t, 1, code)

	for _, n := range []string{"a.jpg", "b.jpg"} {
		_, err := os.Stat(filepath.Join(out, n))
		require.NoError(t, err)
	}
	metrics, err := os.ReadFile(filepath.Join(home, "wm.prom"))
	require.NoError(t, err)
	require.Contains(t, string(metrics), `wmstudio_export_images_total{result="ok"} 2`)

	store, err := template.Open(filepath.Join(home, "store"), zap.NewNop())
	require.NoError(t, err)
	names, err := store.Names()
	require.NoError(t, err)
	require.Equal(t, []string{"cli"}, names)
	session, ok, err := store.LoadSession()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "CLI", session.Text.Content)

	// Exporting again collides with the first run's files.
	require.Equal(t, 1, run([]string{"export", "-out", out, "-session", filepath.Join(in, "a.png")}))
	require.Equal(t, 0, run([]string{"export", "-out", out, "-session", "-overwrite", filepath.Join(in, "a.png")}))

	require.Equal(t, 0, run([]string{"template", "list"}))
	require.Equal(t, 0, run([]string{"template", "show", "cli"}))
	require.Equal(t, 0, run([]string{"template", "delete", "cli"}))
	require.Equal(t, 1, run([]string{"template", "show", "cli"}))
}

func TestRunPreview(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WM_TEMPLATES_DIR", filepath.Join(home, "store"))
	src := filepath.Join(home, "src.png")
	writePNG(t, src, 1000, 800)
	mark := filepath.Join(home, "mark.png")
	img := image.NewNRGBA(image.Rect(0, 0, 100, 40))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	require.NoError(t, codec.Save(mark, img, codec.EncodeOptions{Format: codec.PNG}))
	out := filepath.Join(home, "preview.png")

	code := run([]string{"preview", "-in", src, "-out", out, "-image", mark, "-viewport", "500x400",
		"-drag", "465,380:50,35", "-then-anchor", "top-left", "-save-session"})
	require.Equal(t, 0, code)

	rendered, err := codec.Open(out)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 500, 400), rendered.Bounds())
	r, _, _, _ := rendered.At(30, 30).RGBA()
	require.Greater(t, r>>8, uint32(200))

	store, err := template.Open(filepath.Join(home, "store"), zap.NewNop())
	require.NoError(t, err)
	spec, ok, err := store.LoadSession()
	require.NoError(t, err)
	require.True(t, ok)
	p, custom := spec.Placement.Custom()
	require.True(t, custom)
	require.Equal(t, placement.Point{X: 50, Y: 50}, p)
	require.Equal(t, placement.TopLeft, spec.Placement.Anchor)

	require.Equal(t, 2, run([]string{"preview", "-in", src}))
}
