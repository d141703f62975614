// Package render draws one annotation's wrapped, stroked text onto an image.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/layout"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// Error is a drawing failure for one annotation. It wraps types.ErrRender.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render failure: annotation %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() []error { return []error{types.ErrRender, e.Err} }

// Line is a wrapped line. X is the left edge of its ink and Y the top of its
// line box.
type Line struct {
	Text  string
	X     int
	Y     int
	Width int
}

// Plan is the computed layout of one annotation.
type Plan struct {
	Font       fonts.Resolution
	Lines      []Line
	LineHeight int
	BlockTop   int
}

// BoxRenderer lays out and draws annotations.
type BoxRenderer struct {
	resolver *fonts.Resolver
	logger   *slog.Logger
}

// NewBoxRenderer creates a renderer that loads fonts through resolver.
func NewBoxRenderer(resolver *fonts.Resolver, logger *slog.Logger) *BoxRenderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BoxRenderer{resolver: resolver, logger: logger}
}

// Layout resolves the font, wraps the text against the effective width and
// positions every line. An annotation with no drawable area returns an
// *types.InputError.
func (r *BoxRenderer) Layout(index int, a types.Annotation) (Plan, error) {
	if err := a.Validate(); err != nil {
		return Plan{}, &types.InputError{Index: index, Reason: err.Error()}
	}

	res, err := r.resolver.Resolve(a.Identifier, a.SizePx)
	if err != nil {
		return Plan{}, &types.InputError{Index: index, Reason: err.Error()}
	}
	h := res.Handle

	// faces map precomposed runes; combining sequences would draw apart
	wrapped := layout.Wrap(norm.NFC.String(a.Text), a.EffectiveWidth(), h)
	lineHeight := fonts.LineHeight(h)
	blockHeight := layout.BlockHeight(len(wrapped), lineHeight)

	plan := Plan{
		Font:       res,
		Lines:      make([]Line, 0, len(wrapped)),
		LineHeight: lineHeight,
		BlockTop:   a.Y + types.FloorDiv(a.Height-blockHeight, 2),
	}
	left := a.Left()
	y := plan.BlockTop
	for _, text := range wrapped {
		w := fonts.Measure(h, text).Width
		plan.Lines = append(plan.Lines, Line{
			Text:  text,
			X:     left + types.FloorDiv(a.Width-w, 2),
			Y:     y,
			Width: w,
		})
		y += lineHeight
	}
	return plan, nil
}

// Render draws annotation a onto dst, mutating it in place. Input errors
// are returned as *types.InputError and leave dst untouched. Any failure
// while drawing, including a panic, is returned as *Error; dst may then be
// partially drawn and should be discarded.
func (r *BoxRenderer) Render(dst draw.Image, index int, a types.Annotation) (err error) {
	plan, err := r.Layout(index, a)
	if err != nil {
		return err
	}
	if plan.Font.Status != fonts.StatusResolved {
		r.logger.Debug("annotation font substituted",
			"index", index, "requested", plan.Font.Requested, "resolved", plan.Font.Handle.ID,
			"status", plan.Font.Status.String())
	}

	defer func() {
		if p := recover(); p != nil {
			err = &Error{Index: index, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	fill := image.NewUniform(a.TextColor.Color())
	outline := image.NewUniform(a.OutlineColor.Color())
	h := plan.Font.Handle
	for _, line := range plan.Lines {
		drawLine(dst, h, line, fill, outline, a.StrokeWidth)
	}
	return nil
}

// drawLine rasterises one line into an alpha mask, dilates the mask by the
// stroke width for the outline, then composites outline and fill.
func drawLine(dst draw.Image, h *fonts.Handle, line Line, fill, outline image.Image, stroke int) {
	if line.Text == "" {
		return
	}
	ink := h.Bounds(line.Text)
	// shift the origin so the ink, not the advance box, starts at line.X
	originX := line.X - ink.Min.X.Floor()
	baseline := line.Y + h.Ascent()
	dot := fixed.P(originX, baseline)
	rect := image.Rect(
		line.X-stroke,
		baseline+ink.Min.Y.Floor()-stroke,
		originX+ink.Max.X.Ceil()+stroke,
		baseline+ink.Max.Y.Ceil()+stroke,
	)
	if rect.Empty() || !rect.Overlaps(dst.Bounds()) {
		return
	}
	rect = clipMask(rect, dst.Bounds(), stroke)

	mask := image.NewAlpha(rect)
	h.Draw(mask, image.Opaque, dot, line.Text)

	if stroke > 0 {
		ring := Dilate(mask, stroke)
		draw.DrawMask(dst, rect, outline, image.Point{}, ring, rect.Min, draw.Over)
	}
	draw.DrawMask(dst, rect, fill, image.Point{}, mask, rect.Min, draw.Over)
}

// clipMask limits a line's mask to the surface grown by the stroke, so ink
// just off the edge still dilates into view.
func clipMask(rect, bounds image.Rectangle, stroke int) image.Rectangle {
	return rect.Intersect(bounds.Inset(-stroke))
}
