// Package overlay composites annotation text onto images.
//
// An Engine decodes the input bytes into a private working surface, draws
// each annotation in order (later boxes over earlier ones), flattens any
// alpha and encodes the result. Annotations that fail geometric validation
// are skipped with a warning; a drawing failure aborts the call and no image
// is returned. Engines hold no per-call state and may be shared.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/processing"
	"github.com/solobuilderhub/memegen-ai/pkg/render"
	"github.com/solobuilderhub/memegen-ai/pkg/scaling"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// Options configures an Engine.
type Options struct {
	Format  processing.Format
	Quality int
	Logger  *slog.Logger
}

// DefaultOptions encodes JPEG at quality 95.
func DefaultOptions() Options {
	return Options{
		Format:  processing.JPEG,
		Quality: processing.DefaultQuality,
	}
}

// Engine renders annotation lists onto images.
type Engine struct {
	renderer *render.BoxRenderer
	opts     Options
	logger   *slog.Logger
}

// Report summarises a render call.
type Report struct {
	Size    types.Dims
	Drawn   int
	Skipped []error
}

// New creates an engine using resolver for fonts.
func New(resolver *fonts.Resolver) *Engine {
	return NewWithOptions(resolver, DefaultOptions())
}

// NewWithOptions creates an engine with custom output options.
func NewWithOptions(resolver *fonts.Resolver, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Quality <= 0 {
		opts.Quality = processing.DefaultQuality
	}
	if opts.Format == "" {
		opts.Format = processing.JPEG
	}
	return &Engine{
		renderer: render.NewBoxRenderer(resolver, logger),
		opts:     opts,
		logger:   logger,
	}
}

// RenderAll draws annotations, already in the image's pixel frame, onto the
// encoded image and returns the newly encoded result.
func (e *Engine) RenderAll(imageBytes []byte, anns []types.Annotation) ([]byte, error) {
	out, _, err := e.render(imageBytes, anns, nil)
	return out, err
}

// RenderReferenced is RenderAll for annotations expressed in the reference
// frame. They are scaled to the decoded image's real dimensions first.
func (e *Engine) RenderReferenced(imageBytes []byte, anns []types.Annotation, reference types.Dims) ([]byte, error) {
	out, _, err := e.render(imageBytes, anns, &reference)
	return out, err
}

// RenderWithReport is RenderReferenced (or RenderAll when reference is nil)
// that also reports what was drawn and skipped.
func (e *Engine) RenderWithReport(imageBytes []byte, anns []types.Annotation, reference *types.Dims) ([]byte, Report, error) {
	return e.render(imageBytes, anns, reference)
}

func (e *Engine) render(imageBytes []byte, anns []types.Annotation, reference *types.Dims) ([]byte, Report, error) {
	src, err := processing.DecodeImage(imageBytes)
	if err != nil {
		return nil, Report{}, err
	}

	surface, report, err := e.RenderImage(src, anns, reference)
	if err != nil {
		return nil, report, err
	}

	out, err := processing.EncodeImage(surface, e.opts.Format, e.opts.Quality)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %w", types.ErrRender, err)
	}
	return out, report, nil
}

// RenderImage draws onto a copy of src and returns the flattened copy. src
// itself is never modified.
func (e *Engine) RenderImage(src image.Image, anns []types.Annotation, reference *types.Dims) (*image.NRGBA, Report, error) {
	surface, hasAlpha := processing.NewSurface(src)
	b := surface.Bounds()
	report := Report{Size: types.Dims{Width: b.Dx(), Height: b.Dy()}}
	if !report.Size.Valid() {
		return nil, report, &types.InputError{Index: -1, Reason: fmt.Sprintf("image dimensions %s are not positive", report.Size)}
	}

	if reference != nil {
		scaled, err := scaling.ScaleAnnotations(anns, *reference, report.Size)
		if err != nil {
			return nil, report, err
		}
		anns = scaled
	}

	for i, a := range anns {
		err := e.renderer.Render(surface, i, a)
		if err == nil {
			report.Drawn++
			continue
		}
		if errors.Is(err, types.ErrInput) {
			e.logger.Warn("skipping annotation", "index", i, "reason", err.Error())
			report.Skipped = append(report.Skipped, err)
			continue
		}
		return nil, report, err
	}

	if hasAlpha {
		processing.Flatten(surface)
	}
	return surface, report, nil
}
