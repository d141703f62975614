// Package analysis asks a vision model where to put meme text and turns the
// reply into annotations in the reference frame.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/solobuilderhub/memegen-ai/pkg/client"
	"github.com/solobuilderhub/memegen-ai/pkg/scaling"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// DefaultTemperature keeps captions varied but the JSON stable.
const DefaultTemperature = 0.3

// Analyzer produces annotations through a vision client.
type Analyzer struct {
	client      client.VisionClient
	frame       types.Dims
	fonts       []string
	temperature float64
	logger      *slog.Logger
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithFrame sets the reference frame the model works in.
func WithFrame(frame types.Dims) Option {
	return func(a *Analyzer) { a.frame = frame }
}

// WithFonts sets the font identifiers offered to the model.
func WithFonts(fonts []string) Option {
	return func(a *Analyzer) { a.fonts = fonts }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Analyzer) { a.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an analyzer on top of a vision client.
func NewAnalyzer(c client.VisionClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      c,
		frame:       scaling.ReferenceFrame,
		fonts:       []string{types.DefaultFontName},
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Frame returns the reference frame annotations are expressed in.
func (a *Analyzer) Frame() types.Dims { return a.frame }

// Annotate sends the prepared image (see processing.PrepareImageForModel)
// with the template description and topic, and returns the annotations the
// model placed, in the reference frame.
func (a *Analyzer) Annotate(ctx context.Context, model, imageB64, query string, info TemplateInfo) ([]types.Annotation, error) {
	raw, err := a.client.Complete(ctx, client.Request{
		Model:       model,
		System:      SystemPrompt(a.frame, a.fonts),
		Prompt:      UserPrompt(info, a.frame, query),
		ImageB64:    imageB64,
		JSON:        true,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	anns, err := ParseAnnotations(raw, a.frame)
	if err != nil {
		return nil, err
	}
	if info.BoxCount > 0 && len(anns) != info.BoxCount {
		a.logger.Warn("model returned a different number of boxes",
			"want", info.BoxCount, "got", len(anns))
	}
	return anns, nil
}

// TestVision checks that the model can see the image.
func (a *Analyzer) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return a.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

type reply struct {
	Annotations   []types.Annotation `json:"annotations"`
	TextPositions []types.Position   `json:"text_positions"`
}

// ParseAnnotations extracts annotations from a model reply. It accepts
// {"annotations": [...]} and the older {"text_positions": [...]} shape,
// whose entries become centre-anchored single-line boxes within frame.
// Boxes are clamped into frame.
func ParseAnnotations(raw string, frame types.Dims) ([]types.Annotation, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var r reply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	if len(r.Annotations) > 0 {
		for i := range r.Annotations {
			r.Annotations[i] = normalizeAnnotation(r.Annotations[i], frame)
		}
		return r.Annotations, nil
	}
	anns := make([]types.Annotation, 0, len(r.TextPositions))
	for _, p := range r.TextPositions {
		anns = append(anns, PositionAnnotation(p, frame))
	}
	if len(anns) == 0 {
		return nil, fmt.Errorf("model response contains no annotations")
	}
	return anns, nil
}

// PositionAnnotation converts a single-line text position into a box
// centred on p.X, as wide as the frame allows, one line tall and unpadded.
func PositionAnnotation(p types.Position, frame types.Dims) types.Annotation {
	halfWidth := min(p.X, frame.Width-p.X)
	a := types.NewAnnotation(p.X, p.Y, max(2*halfWidth, 1), max(p.FontSize*6/5, 1), p.Text)
	a.Anchor = types.AnchorCenter
	a.Padding = 0
	if p.FontSize > 0 {
		a.SizePx = p.FontSize
	}
	return a
}

// normalizeAnnotation clamps a model-supplied box into frame and tidies its
// text. Geometry that is still unusable is left for Validate to reject.
func normalizeAnnotation(a types.Annotation, frame types.Dims) types.Annotation {
	a.Text = strings.Join(strings.Fields(a.Text), " ")
	if !frame.Valid() {
		return a
	}

	left := clamp(a.Left(), 0, frame.Width)
	right := clamp(a.Left()+a.Width, 0, frame.Width)
	top := clamp(a.Y, 0, frame.Height)
	bottom := clamp(a.Y+a.Height, 0, frame.Height)
	if right <= left || bottom <= top {
		return a
	}

	a.Width = right - left
	a.Height = bottom - top
	a.Y = top
	a.X = left
	if a.Anchor == types.AnchorCenter {
		a.X = left + a.Width/2
	}
	return a
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model reply and keeps the outermost {...}.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
