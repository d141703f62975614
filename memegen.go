// Package memegen renders meme captions onto template images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//		"os"
//
//		memegen "github.com/solobuilderhub/memegen-ai"
//		"github.com/solobuilderhub/memegen-ai/pkg/types"
//	)
//
//	func main() {
//		gen := memegen.New()
//
//		img, err := os.ReadFile("template.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Boxes in the 512x512 reference frame
//		top := types.NewAnnotation(56, 20, 400, 100, "When the build passes")
//		bottom := types.NewAnnotation(56, 392, 400, 100, "on the first try")
//
//		out, err := gen.OverlayReferenced(img, []types.Annotation{top, bottom})
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := os.WriteFile("meme.jpg", out, 0o644); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package is built from these components:
//
// 1. Fonts (pkg/fonts): allow-listed font resolution with silent fallback,
// a process-wide (identifier, size) handle cache and text metrics
// 2. Layout (pkg/layout): greedy word wrapping against measured widths
// 3. Scaling (pkg/scaling): reference frame to image frame geometry
// 4. Render (pkg/render): per-box layout, vertical centring, fill and outline
// 5. Overlay (pkg/overlay): decode, draw every box, flatten, encode
// 6. Analysis (pkg/analysis): asks a vision model (pkg/ollama,
// pkg/llamacpp) where to put which text
package memegen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solobuilderhub/memegen-ai/pkg/analysis"
	"github.com/solobuilderhub/memegen-ai/pkg/client"
	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/overlay"
	"github.com/solobuilderhub/memegen-ai/pkg/processing"
	"github.com/solobuilderhub/memegen-ai/pkg/scaling"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// Version of the meme generator library
const Version = "1.0.0"

// Config configures a Generator.
type Config struct {
	// Fonts configures font resolution. A zero value uses the embedded font.
	Fonts fonts.Config
	// Output selects the encoding of rendered images.
	Output overlay.Options
	// Frame is the reference frame annotations from the model use.
	Frame types.Dims
	// Vision is the analysis backend. Generate needs it; Overlay does not.
	Vision client.VisionClient
	// Model is the vision model name passed to Vision.
	Model string
	// SendFormat and SendQuality control the image sent to the model.
	SendFormat  processing.Format
	SendQuality int
	// Temperature is the model's sampling temperature.
	Temperature float64
	Logger      *slog.Logger
}

// Generator ties font resolution, rendering and analysis together.
type Generator struct {
	resolver  *fonts.Resolver
	engine    *overlay.Engine
	processor *processing.Processor
	analyzer  *analysis.Analyzer
	cfg       Config
}

// Result is the outcome of Generate.
type Result struct {
	Image       []byte
	Annotations []types.Annotation
	Report      overlay.Report
}

// New creates a Generator with the embedded font, JPEG output and no
// vision backend.
func New() *Generator {
	g, err := NewWithConfig(Config{})
	if err != nil {
		// only reachable with a configured font directory
		panic(err)
	}
	return g
}

// NewWithConfig creates a Generator. It fails with types.ErrConfiguration
// when the default font cannot be loaded.
func NewWithConfig(cfg Config) (*Generator, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if !cfg.Frame.Valid() {
		cfg.Frame = scaling.ReferenceFrame
	}
	if cfg.SendQuality <= 0 {
		cfg.SendQuality = 85
	}

	var resolver *fonts.Resolver
	if cfg.Fonts.Default == "" {
		resolver = fonts.NewBuiltin(cfg.Logger)
	} else {
		fc := cfg.Fonts
		fc.Logger = cfg.Logger
		var err error
		resolver, err = fonts.New(fc)
		if err != nil {
			return nil, err
		}
	}

	out := cfg.Output
	out.Logger = cfg.Logger

	g := &Generator{
		resolver:  resolver,
		engine:    overlay.NewWithOptions(resolver, out),
		processor: processing.NewProcessor(),
		cfg:       cfg,
	}
	if cfg.Vision != nil {
		g.analyzer = analysis.NewAnalyzer(cfg.Vision,
			analysis.WithFrame(cfg.Frame),
			analysis.WithFonts(g.Fonts()),
			analysis.WithTemperature(cfg.Temperature),
			analysis.WithLogger(cfg.Logger),
		)
	}
	return g, nil
}

// Fonts lists the font identifiers annotations may use.
func (g *Generator) Fonts() []string {
	if av := g.resolver.Available(); len(av) > 0 {
		return av
	}
	return []string{g.resolver.Default()}
}

// Resolver returns the shared font resolver.
func (g *Generator) Resolver() *fonts.Resolver { return g.resolver }

// Overlay draws annotations given in the image's own pixel frame.
func (g *Generator) Overlay(imageBytes []byte, anns []types.Annotation) ([]byte, error) {
	return g.engine.RenderAll(imageBytes, anns)
}

// OverlayReferenced draws annotations given in the reference frame.
func (g *Generator) OverlayReferenced(imageBytes []byte, anns []types.Annotation) ([]byte, error) {
	return g.engine.RenderReferenced(imageBytes, anns, g.cfg.Frame)
}

// Annotate asks the vision backend for annotations on the given image, in
// the reference frame.
func (g *Generator) Annotate(ctx context.Context, imageBytes []byte, query string, info analysis.TemplateInfo) ([]types.Annotation, error) {
	if g.analyzer == nil {
		return nil, fmt.Errorf("%w: no vision backend configured", types.ErrConfiguration)
	}
	img, err := processing.DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	if !info.Original.Valid() {
		b := img.Bounds()
		info.Original = types.Dims{Width: b.Dx(), Height: b.Dy()}
	}
	imgB64, err := processing.PrepareImageForModel(img, g.cfg.Frame, g.cfg.SendFormat, g.cfg.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image for model: %w", err)
	}
	return g.analyzer.Annotate(ctx, g.cfg.Model, imgB64, query, info)
}

// Generate loads the template from a path or URL, asks the model for
// captions on the topic and renders them.
func (g *Generator) Generate(ctx context.Context, source, query string, info analysis.TemplateInfo) (Result, error) {
	imageBytes, err := g.processor.ReadImage(ctx, source)
	if err != nil {
		return Result{}, err
	}

	anns, err := g.Annotate(ctx, imageBytes, query, info)
	if err != nil {
		return Result{}, err
	}

	frame := g.cfg.Frame
	out, report, err := g.engine.RenderWithReport(imageBytes, anns, &frame)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render meme: %w", err)
	}
	return Result{Image: out, Annotations: anns, Report: report}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
