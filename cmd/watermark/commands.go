package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"wmstudio/pkg/codec"
	"wmstudio/pkg/export"
	"wmstudio/pkg/preview"
	"wmstudio/pkg/watermark"
)

func (a *app) export(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := addSpecFlags(fs)
	out := fs.String("out", "", "output folder (required)")
	format := fs.String("format", a.cfg.Export.Format, "output format: jpeg or png")
	quality := fs.Int("quality", a.cfg.Export.Quality, "JPEG quality (0..100)")
	bg := fs.String("bg", a.cfg.Export.Background, "background JPEG output is flattened onto")
	naming := fs.String("naming", a.cfg.Export.Naming, "file naming: original, prefix or suffix")
	prefix := fs.String("prefix", export.DefaultPrefix, "prefix for -naming prefix")
	suffix := fs.String("suffix", export.DefaultSuffix, "suffix for -naming suffix")
	overwrite := fs.Bool("overwrite", false, "replace existing files and sources")
	width := fs.Int("width", 0, "resize output to this width, keeping aspect")
	height := fs.Int("height", 0, "resize output to this height, keeping aspect")
	percent := fs.Int("percent", 0, "resize output to this percentage")
	saveAs := fs.String("save-template", "", "also save the watermark as a named template")
	metricsFile := fs.String("metrics-file", a.cfg.Export.MetricsFile, "write export metrics in Prometheus text format")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := validateRequired("out", *out); err != nil {
		return a.fail(err)
	}
	if fs.NArg() == 0 {
		return a.fail(usageError("no source images given"))
	}
	sources, err := export.CollectSources(fs.Args()...)
	if err != nil {
		return a.fail(err)
	}
	spec, err := sf.build(a.store)
	if err != nil {
		return a.fail(err)
	}
	f, err := parseFormat(*format)
	if err != nil {
		return a.fail(err)
	}
	rule, err := export.ParseRule(*naming)
	if err != nil {
		return a.fail(usageError("invalid -naming: %v", err))
	}
	bgColor, err := watermark.ParseColor(*bg)
	if err != nil {
		return a.fail(usageError("invalid -bg: %v", err))
	}

	if spec.Kind == watermark.KindText {
		if err := a.store.SaveSession(spec); err != nil {
			a.log.Warn("could not save session", zap.Error(err))
		}
	}
	if *saveAs != "" {
		if err := a.store.Save(*saveAs, spec); err != nil {
			return a.fail(err)
		}
	}

	reg := prometheus.NewRegistry()
	engine := export.NewEngine(a.renderer, export.WithLogger(a.log), export.WithMetrics(export.NewMetrics(reg)))
	opts := export.Options{
		OutputDir:  *out,
		Naming:     export.Naming{Rule: rule, Prefix: *prefix, Suffix: *suffix},
		Format:     f,
		Quality:    *quality,
		Background: bgColor.NRGBA(),
		Resize:     export.Resize{Width: *width, Height: *height, Percent: *percent},
		Overwrite:  *overwrite,
	}
	res, err := engine.ExportAll(ctx, sources, spec, opts)
	var ce *export.ConflictError
	if errors.As(err, &ce) {
		for _, c := range ce.Conflicts {
			fmt.Fprintf(os.Stderr, "%s: %s\n", c.Output, c.Reason)
		}
		fmt.Fprintln(os.Stderr, "nothing exported; use -overwrite or another -naming rule")
		return 1
	}
	if err != nil {
		return a.fail(err)
	}

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			a.log.Warn("could not write metrics", zap.String("file", *metricsFile), zap.Error(err))
		}
	}

	for _, f := range res.Failures {
		fmt.Fprintln(os.Stderr, "failed:", f.Error())
	}
	fmt.Printf("exported %d of %d images to %s\n", res.Succeeded, len(sources), *out)
	switch {
	case res.Canceled:
		fmt.Fprintf(os.Stderr, "canceled after %d images\n", res.Attempted)
		return 130
	case len(res.Failures) > 0:
		return 1
	}
	return 0
}

func (a *app) preview(args []string) int {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	sf := addSpecFlags(fs)
	in := fs.String("in", "", "source image (required)")
	out := fs.String("out", "", "PNG file for the rendered preview (required)")
	size := fs.String("viewport", fmt.Sprintf("%dx%d", a.cfg.Preview.Width, a.cfg.Preview.Height), "viewport size WxH")
	drag := fs.String("drag", "", "drag gesture in viewport pixels: x1,y1:x2,y2")
	thenAnchor := fs.String("then-anchor", "", "select this anchor after the drag")
	force := fs.Bool("force", false, "with -then-anchor, realign to the anchor immediately")
	save := fs.Bool("save-session", false, "store the resulting watermark as the last session")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := validateRequired("in", *in, "out", *out); err != nil {
		return a.fail(err)
	}
	w, h, err := parseSize(*size)
	if err != nil {
		return a.fail(usageError("invalid -viewport: %v", err))
	}
	spec, err := sf.build(a.store)
	if err != nil {
		return a.fail(err)
	}
	src, err := codec.Open(*in)
	if err != nil {
		return a.fail(err)
	}

	s := preview.NewSession(a.renderer, src, spec, a.log)
	s.SetViewport(w, h)
	if c, err := watermark.ParseColor(a.cfg.Preview.Background); err == nil {
		s.Background = c.NRGBA()
	}

	if *drag != "" {
		from, to, ok := strings.Cut(*drag, ":")
		if !ok {
			return a.fail(usageError("invalid -drag: expected x1,y1:x2,y2"))
		}
		p1, err1 := parsePoint(from)
		p2, err2 := parsePoint(to)
		if err1 != nil || err2 != nil {
			return a.fail(usageError("invalid -drag: %q", *drag))
		}
		if s.BeginDrag(p1[0], p1[1]) {
			s.ContinueDrag(p2[0], p2[1])
			s.EndDrag()
		} else {
			fmt.Fprintln(os.Stderr, "drag start does not hit the watermark; placement unchanged")
		}
	}
	if *thenAnchor != "" {
		anchor, err := parseAnchorFlag(*thenAnchor)
		if err != nil {
			return a.fail(err)
		}
		s.SetAnchor(anchor, *force)
	}

	img, err := s.Render()
	if err != nil {
		return a.fail(err)
	}
	if err := codec.Save(*out, img, codec.EncodeOptions{Format: codec.PNG, Background: color.NRGBA{}}); err != nil {
		return a.fail(err)
	}

	final := s.Spec()
	p := s.Point()
	mode := "anchor " + final.Placement.Anchor.String()
	if final.Placement.IsCustom() {
		mode = "custom"
	}
	fmt.Printf("placement %d,%d (%s), display scale %.4f\n", p.X, p.Y, mode, s.Mapper().Scale())
	if *save {
		if err := a.store.SaveSession(final); err != nil {
			return a.fail(err)
		}
	}
	return 0
}

func (a *app) templates(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: watermark template list | show NAME | delete NAME")
		return 2
	}
	switch args[0] {
	case "list", "ls":
		listing, err := a.store.LoadAll()
		if err != nil {
			return a.fail(err)
		}
		for _, c := range listing.Corrupt {
			fmt.Fprintln(os.Stderr, "skipped:", c.Err)
		}
		for _, t := range listing.Templates {
			fmt.Printf("%-24s %-5s updated %s\n", t.Name, t.Spec.Kind, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return 0
	case "show":
		if len(args) < 2 {
			return a.fail(usageError("template show needs a name"))
		}
		t, err := a.store.Load(strings.Join(args[1:], " "))
		if err != nil {
			return a.fail(err)
		}
		printSpec(t.Name, t.Spec)
		return 0
	case "delete", "rm":
		if len(args) < 2 {
			return a.fail(usageError("template delete needs a name"))
		}
		if err := a.store.Delete(strings.Join(args[1:], " ")); err != nil {
			return a.fail(err)
		}
		return 0
	}
	fmt.Fprintln(os.Stderr, "unknown template command:", args[0])
	return 2
}

func printSpec(name string, s watermark.Spec) {
	fmt.Printf("name:      %s\nkind:      %s\n", name, s.Kind)
	switch s.Kind {
	case watermark.KindText:
		t := s.Text
		fmt.Printf("text:      %q\nfont:      %s %d bold=%t italic=%t\ncolor:     %s\neffects:   shadow=%t outline=%t\n",
			t.Content, t.FontFamily, t.FontSize, t.Bold, t.Italic, t.Color.Hex(), t.Shadow, t.Outline)
	case watermark.KindImage:
		fmt.Printf("image:     %s\nscale:     %d%%\n", s.Image.Path, s.Image.Scale)
	}
	fmt.Printf("opacity:   %d%%\nrotation:  %g\nanchor:    %s\n", s.Opacity, s.Rotation, s.Placement.Anchor)
	if p, ok := s.Placement.Custom(); ok {
		fmt.Printf("position:  %d,%d\n", p.X, p.Y)
	}
}

func (a *app) fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return exitCode(err)
}
