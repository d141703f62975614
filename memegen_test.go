package memegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/solobuilderhub/memegen-ai/pkg/analysis"
	"github.com/solobuilderhub/memegen-ai/pkg/client"
	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/overlay"
	"github.com/solobuilderhub/memegen-ai/pkg/processing"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// createTestImage creates a simple two-tone PNG template
func createTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if y < height/2 {
				img.Set(x, y, color.RGBA{40, 90, 160, 255})
			} else {
				img.Set(x, y, color.RGBA{200, 120, 40, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type stubVision struct {
	reply string
	req   client.Request
}

func (s *stubVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return s.reply, nil
}

func (s *stubVision) Complete(ctx context.Context, req client.Request) (string, error) {
	s.req = req
	return s.reply, nil
}

func TestNew(t *testing.T) {
	gen := New()
	if gen == nil {
		t.Fatal("New() returned nil")
	}
	if gen.resolver == nil || gen.engine == nil || gen.processor == nil {
		t.Error("components not initialised")
	}
	if gen.analyzer != nil {
		t.Error("no analyzer expected without a vision backend")
	}
	if fs := gen.Fonts(); len(fs) != 1 || fs[0] != fonts.BuiltinGoRegular {
		t.Errorf("Fonts() = %v", fs)
	}
}

func TestNewWithConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Arial.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	gen, err := NewWithConfig(Config{Fonts: fonts.DefaultConfig(dir)})
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	if len(gen.Fonts()) != len(fonts.DefaultAvailable) {
		t.Errorf("Fonts() = %v", gen.Fonts())
	}
	if gen.Resolver().Default() != "Arial.ttf" {
		t.Errorf("default = %q", gen.Resolver().Default())
	}

	_, err = NewWithConfig(Config{Fonts: fonts.DefaultConfig(t.TempDir())})
	if !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("missing default font error = %v, want ErrConfiguration", err)
	}
}

func TestOverlay(t *testing.T) {
	gen, err := NewWithConfig(Config{Output: overlay.Options{Format: processing.PNG}})
	if err != nil {
		t.Fatal(err)
	}
	input := createTestImage(t, 400, 300)

	out, err := gen.Overlay(input, []types.Annotation{types.NewAnnotation(0, 0, 400, 150, "top text")})
	if err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}
	if bytes.Equal(out, input) {
		t.Error("output identical to input")
	}
	img, err := processing.DecodeImage(out)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("output size = %v", img.Bounds())
	}

	if _, err := gen.Overlay([]byte("junk"), nil); !errors.Is(err, types.ErrInput) {
		t.Errorf("junk input error = %v, want ErrInput", err)
	}
}

func TestOverlayReferenced(t *testing.T) {
	gen, err := NewWithConfig(Config{Output: overlay.Options{Format: processing.PNG}})
	if err != nil {
		t.Fatal(err)
	}
	input := createTestImage(t, 1024, 1024)

	// in the reference frame this box fills the bottom half
	a := types.NewAnnotation(0, 256, 512, 256, "bottom")
	out, err := gen.OverlayReferenced(input, []types.Annotation{a})
	if err != nil {
		t.Fatalf("OverlayReferenced failed: %v", err)
	}
	img, err := processing.DecodeImage(out)
	if err != nil {
		t.Fatal(err)
	}
	// top half keeps its colour
	if r, g, b, _ := img.At(512, 100).RGBA(); r>>8 != 40 || g>>8 != 90 || b>>8 != 160 {
		t.Errorf("top half changed: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestAnnotateWithoutBackend(t *testing.T) {
	gen := New()
	_, err := gen.Annotate(context.Background(), createTestImage(t, 10, 10), "q", analysis.TemplateInfo{})
	if !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.png")
	if err := os.WriteFile(path, createTestImage(t, 800, 600), 0o644); err != nil {
		t.Fatal(err)
	}

	vision := &stubVision{reply: "```json\n" + `{"annotations": [
		{"x": 56, "y": 20, "width": 400, "height": 100, "text": "Writing tests", "font_name": "builtin:goregular"},
		{"x": 56, "y": 392, "width": 400, "height": 100, "text": "Running tests"}
	]}` + "\n```"}

	gen, err := NewWithConfig(Config{Vision: vision, Model: "minicpm-v"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := gen.Generate(context.Background(), path, "testing", analysis.TemplateInfo{Name: "Drake", BoxCount: 2})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(res.Annotations) != 2 || res.Report.Drawn != 2 {
		t.Errorf("annotations = %d, drawn = %d", len(res.Annotations), res.Report.Drawn)
	}
	if res.Report.Size != (types.Dims{Width: 800, Height: 600}) {
		t.Errorf("report size = %v", res.Report.Size)
	}
	if _, err := processing.DecodeImage(res.Image); err != nil {
		t.Errorf("generated image does not decode: %v", err)
	}

	if vision.req.Model != "minicpm-v" || vision.req.ImageB64 == "" || !vision.req.JSON {
		t.Errorf("vision request = %+v", vision.req)
	}

	if _, err := gen.Generate(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "q", analysis.TemplateInfo{}); err == nil {
		t.Error("missing template should fail")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %q", GetVersion())
	}
}
