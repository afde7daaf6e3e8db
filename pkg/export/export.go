// Package export applies one watermark to a batch of source images at full
// resolution and writes the results. A failing image is recorded and skipped;
// it never aborts the rest of the batch.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"wmstudio/internal/fsutil"
	"wmstudio/pkg/codec"
	"wmstudio/pkg/watermark"
)

var ErrInvalidOptions = errors.New("invalid export options")

// Stage names the step at which an image failed.
type Stage string

const (
	StageDecode Stage = "decode"
	StageRender Stage = "render"
	StageEncode Stage = "encode"
)

const (
	resultOK     = "ok"
	resultFailed = "failed"
)

// Resize optionally scales the watermarked image before encoding. At most one
// field may be set; zero values mean "keep size".
type Resize struct {
	Width   int
	Height  int
	Percent int
}

func (r Resize) active() bool { return r.Width > 0 || r.Height > 0 || r.Percent > 0 }

func (r Resize) validate() error {
	set := 0
	for _, v := range []int{r.Width, r.Height, r.Percent} {
		if v < 0 {
			return fmt.Errorf("%w: negative resize value", ErrInvalidOptions)
		}
		if v > 0 {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%w: resize by width, height or percent, not several", ErrInvalidOptions)
	}
	return nil
}

func (r Resize) apply(img *image.NRGBA) *image.NRGBA {
	switch {
	case r.Width > 0:
		return imaging.Resize(img, r.Width, 0, imaging.Lanczos)
	case r.Height > 0:
		return imaging.Resize(img, 0, r.Height, imaging.Lanczos)
	case r.Percent > 0:
		b := img.Bounds()
		w := max(b.Dx()*r.Percent/100, 1)
		h := max(b.Dy()*r.Percent/100, 1)
		return imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return img
}

// Options is the output policy of one batch.
type Options struct {
	OutputDir  string
	Naming     Naming
	Format     codec.Format
	Quality    int
	Background color.NRGBA
	Resize     Resize
	Overwrite  bool
}

func (o Options) validate() error {
	if strings.TrimSpace(o.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidOptions)
	}
	if o.Format != codec.JPEG && o.Format != codec.PNG {
		return fmt.Errorf("%w: format %q", ErrInvalidOptions, o.Format)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("%w: quality %d not in [0,100]", ErrInvalidOptions, o.Quality)
	}
	return o.Resize.validate()
}

// Failure records one image that could not be exported.
type Failure struct {
	Source string
	Stage  Stage
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result summarises a batch. Attempted counts images that were started;
// it is below the source count only when the batch was canceled.
type Result struct {
	Attempted int
	Succeeded int
	Outputs   []string
	Failures  []Failure
	Canceled  bool
}

// Engine runs export batches.
type Engine struct {
	renderer *watermark.Renderer
	log      *zap.Logger
	metrics  *Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records per-image results on m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an Engine that draws with r.
func NewEngine(r *watermark.Renderer, opts ...EngineOption) *Engine {
	e := &Engine{renderer: r, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAll watermarks every source and writes it under opts.OutputDir. The
// spec is validated and output conflicts are checked before any image is
// touched. Placement is re-resolved per image since sizes differ. ctx is
// checked between images; an image in progress always completes.
func (e *Engine) ExportAll(ctx context.Context, sources []string, spec watermark.Spec, opts Options) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	if !opts.Overwrite {
		if conflicts := Conflicts(sources, opts); len(conflicts) > 0 {
			return Result{}, &ConflictError{Conflicts: conflicts}
		}
	}

	e.metrics.batch()
	log := e.log.With(zap.String("output_dir", opts.OutputDir), zap.String("format", string(opts.Format)))
	log.Info("export started", zap.Int("sources", len(sources)))

	var res Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			res.Canceled = true
			log.Warn("export canceled", zap.Int("remaining", len(sources)-res.Attempted), zap.Error(err))
			break
		}
		res.Attempted++

		start := time.Now()
		out, fail := e.exportOne(src, spec, opts)
		if fail != nil {
			res.Failures = append(res.Failures, *fail)
			e.metrics.observe(resultFailed, 0)
			log.Warn("image export failed",
				zap.String("source", src),
				zap.String("stage", string(fail.Stage)),
				zap.Error(fail.Err))
			continue
		}
		res.Succeeded++
		res.Outputs = append(res.Outputs, out)
		e.metrics.observe(resultOK, time.Since(start).Seconds())
		log.Debug("image exported", zap.String("source", src), zap.String("output", out))
	}

	log.Info("export finished",
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", len(res.Failures)),
		zap.Bool("canceled", res.Canceled))
	return res, nil
}

func (e *Engine) exportOne(src string, spec watermark.Spec, opts Options) (string, *Failure) {
	img, err := codec.Open(src)
	if err != nil {
		return "", &Failure{Source: src, Stage: StageDecode, Err: err}
	}

	marked, _, err := e.renderer.Apply(img, spec)
	if err != nil {
		return "", &Failure{Source: src, Stage: StageRender, Err: err}
	}
	if opts.Resize.active() {
		marked = opts.Resize.apply(marked)
	}

	out := OutputPath(src, opts)
	enc := codec.EncodeOptions{Format: opts.Format, Quality: opts.Quality, Background: opts.Background}
	err = fsutil.WriteFileAtomic(out, func(w io.Writer) error {
		return codec.Encode(w, marked, enc)
	})
	if err != nil {
		if !errors.Is(err, codec.ErrEncode) {
			err = fmt.Errorf("%w: %w", codec.ErrEncode, err)
		}
		return "", &Failure{Source: src, Stage: StageEncode, Err: err}
	}
	return out, nil
}
