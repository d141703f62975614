package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/solobuilderhub/memegen-ai/internal/config"
	"github.com/solobuilderhub/memegen-ai/internal/utils"
	"github.com/solobuilderhub/memegen-ai/pkg/analysis"
	"github.com/solobuilderhub/memegen-ai/pkg/client"
	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/llamacpp"
	"github.com/solobuilderhub/memegen-ai/pkg/ollama"
	"github.com/solobuilderhub/memegen-ai/pkg/overlay"
	"github.com/solobuilderhub/memegen-ai/pkg/processing"
	"github.com/solobuilderhub/memegen-ai/pkg/scaling"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

func main() {
	var in, annotationsPath, query, outDir, ext string
	var backend, url, model string
	var reference, fontDir, configPath string
	var quality int
	var debug bool

	flag.StringVar(&in, "in", "", "template image path or URL (jpg/png/gif/webp)")
	flag.StringVar(&annotationsPath, "annotations", "", "JSON file with an array of annotations or {\"annotations\": [...]}")
	flag.StringVar(&query, "query", "", "meme topic; asks the vision model for captions instead of -annotations")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&ext, "ext", "", "output format: jpg|png|webp (default from config)")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality 1-100 (default from config)")
	flag.StringVar(&backend, "backend", "", "vision backend: ollama or llamacpp (default from config)")
	flag.StringVar(&url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "vision model name (default from config)")
	flag.StringVar(&reference, "reference", "", "reference frame WxH the annotations are given in, empty = image pixels")
	flag.StringVar(&fontDir, "fonts", "", "font directory holding the allow-listed .ttf files")
	flag.StringVar(&configPath, "config", "", "config file (default ~/.config/memegen/config.json if present)")
	flag.BoolVar(&debug, "debug", false, "also write a PNG with every box outlined")

	flag.Parse()
	if in == "" || (annotationsPath == "" && query == "") {
		log.Fatalf("usage: %s -in template.jpg|URL (-annotations boxes.json | -query topic) [-reference 512x512] [-fonts dir] [-out outdir] [-ext jpg|png|webp]", filepath.Base(os.Args[0]))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, outDir, ext, quality, backend, url, model, fontDir)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	format, err := processing.ParseFormat(cfg.Render.OutputFormat)
	if err != nil {
		log.Fatal(err)
	}
	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}

	logger := slog.Default()
	fc := cfg.FontResolverConfig()
	fc.Logger = logger
	resolver, err := fonts.New(fc)
	if err != nil {
		log.Fatalf("Failed to load fonts: %v", err)
	}
	engine := overlay.NewWithOptions(resolver, overlay.Options{
		Format:  format,
		Quality: cfg.Render.Quality,
		Logger:  logger,
	})
	processor := processing.NewProcessor()
	ctx := context.Background()

	imageBytes, err := processor.ReadImage(ctx, in)
	if err != nil {
		log.Fatal(err)
	}
	img, err := processing.DecodeImage(imageBytes)
	if err != nil {
		log.Fatal(err)
	}
	b := img.Bounds()
	log.Printf("template %s: %dx%d", in, b.Dx(), b.Dy())

	var frame *types.Dims
	if reference != "" {
		d, err := types.ParseDims(reference)
		if err != nil {
			log.Fatal(err)
		}
		frame = &d
	}

	var anns []types.Annotation
	if annotationsPath != "" {
		anns, err = readAnnotations(annotationsPath)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		visionClient, err := newVisionClient(cfg.Vision.Backend, cfg.Vision.URL)
		if err != nil {
			log.Fatal(err)
		}
		f := cfg.ReferenceFrame()
		frame = &f
		anns, err = askModel(ctx, visionClient, cfg, resolver, logger, img, in, query)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("model returned %d annotations", len(anns))
	}

	out, report, err := engine.RenderWithReport(imageBytes, anns, frame)
	if err != nil {
		log.Fatalf("render failed: %v", err)
	}
	for _, skipped := range report.Skipped {
		log.Printf("skipped: %v", skipped)
	}

	outPath := utils.GenerateOutputFilename(in, cfg.Output.Dir, cfg.Output.Prefix, cfg.Output.Suffix, string(format))
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%d of %d annotations drawn)", outPath, report.Drawn, len(anns))

	if debug {
		boxes := anns
		if frame != nil {
			boxes, err = scaling.ScaleAnnotations(anns, *frame, types.Dims{Width: b.Dx(), Height: b.Dy()})
			if err != nil {
				log.Fatal(err)
			}
		}
		dbg := processing.CreateDebugOverlay(img, boxes)
		data, err := processing.EncodeImage(dbg, processing.PNG, 0)
		if err != nil {
			log.Fatal(err)
		}
		dbgPath := utils.GenerateOutputFilename(in, cfg.Output.Dir, cfg.Output.Prefix, cfg.Output.Suffix+"_debug", string(processing.PNG))
		if err := os.WriteFile(dbgPath, data, 0o644); err != nil {
			log.Printf("debug overlay save failed: %v", err)
		} else {
			log.Printf("wrote %s", dbgPath)
		}
	}

	// Save the annotations that were rendered
	js, _ := json.MarshalIndent(anns, "", "  ")
	_ = os.WriteFile(strings.TrimSuffix(outPath, filepath.Ext(outPath))+".json", js, 0o644)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if p := config.GetConfigPath(); utils.FileExists(p) {
		return config.LoadFromFile(p)
	}
	return config.Default(), nil
}

func applyFlags(cfg *config.Config, outDir, ext string, quality int, backend, url, model, fontDir string) {
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if ext != "" {
		cfg.Render.OutputFormat = ext
	}
	if quality > 0 {
		cfg.Render.Quality = quality
	}
	if backend != "" {
		cfg.Vision.Backend = backend
	}
	if url != "" {
		cfg.Vision.URL = url
	}
	if model != "" {
		cfg.Vision.Model = model
	}
	if fontDir != "" {
		cfg.Fonts.Dir = fontDir
		if cfg.Fonts.Default == fonts.BuiltinGoRegular {
			cfg.Fonts.Default = types.DefaultFontName
		}
	}
}

func newVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}

// askModel sends the template, resized to the reference frame, to the vision
// model and returns the annotations it proposes for query.
func askModel(ctx context.Context, vc client.VisionClient, cfg *config.Config, resolver *fonts.Resolver, logger *slog.Logger, img image.Image, source, query string) ([]types.Annotation, error) {
	frame := cfg.ReferenceFrame()
	sendFmt, err := processing.ParseFormat(cfg.Vision.SendFormat)
	if err != nil {
		return nil, err
	}
	imgB64, err := processing.PrepareImageForModel(img, frame, sendFmt, cfg.Vision.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image for model: %w", err)
	}

	analyzer := analysis.NewAnalyzer(vc,
		analysis.WithFrame(frame),
		analysis.WithFonts(resolver.Available()),
		analysis.WithTemperature(cfg.Vision.Temperature),
		analysis.WithLogger(logger),
	)

	b := img.Bounds()
	info := analysis.TemplateInfo{
		Name:     utils.SanitizeFilename(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))),
		Original: types.Dims{Width: b.Dx(), Height: b.Dy()},
	}
	return analyzer.Annotate(ctx, cfg.Vision.Model, imgB64, query, info)
}

// readAnnotations accepts either a bare JSON array or an object with an
// "annotations" array.
func readAnnotations(path string) ([]types.Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	var anns []types.Annotation
	if err := json.Unmarshal(data, &anns); err == nil {
		return anns, nil
	}
	var wrapped struct {
		Annotations []types.Annotation `json:"annotations"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}
	return wrapped.Annotations, nil
}
