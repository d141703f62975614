// Package scaling maps geometry from the fixed reference frame used by the
// analysis step into an image's real pixel frame.
//
// Positions and box sizes scale per axis, so a box keeps its place on a
// target with a different aspect ratio. Font sizes scale by the smaller of
// the two axis factors so glyphs are never stretched. Every result is rounded
// to the nearest pixel.
package scaling

import (
	"fmt"
	"math"

	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// ReferenceFrame is the square canvas the analysis step works in.
var ReferenceFrame = types.Dims{Width: 512, Height: 512}

// Factors are the per-axis scale factors from one frame to another.
type Factors struct {
	X float64
	Y float64
}

// Uniform is the factor applied to font sizes: min(X, Y).
func (f Factors) Uniform() float64 {
	return math.Min(f.X, f.Y)
}

// Identity reports whether the factors leave geometry unchanged.
func (f Factors) Identity() bool {
	return f.X == 1 && f.Y == 1
}

// FactorsFor returns the factors mapping reference onto target.
func FactorsFor(reference, target types.Dims) (Factors, error) {
	if !reference.Valid() {
		return Factors{}, &types.InputError{Index: -1, Reason: fmt.Sprintf("reference dimensions %s are not positive", reference)}
	}
	if !target.Valid() {
		return Factors{}, &types.InputError{Index: -1, Reason: fmt.Sprintf("target dimensions %s are not positive", target)}
	}
	return Factors{
		X: float64(target.Width) / float64(reference.Width),
		Y: float64(target.Height) / float64(reference.Height),
	}, nil
}

func scale(v int, f float64) int {
	return int(math.Round(float64(v) * f))
}

// ScalePoint scales each axis of p independently.
func ScalePoint(p types.Point, reference, target types.Dims) (types.Point, error) {
	f, err := FactorsFor(reference, target)
	if err != nil {
		return p, err
	}
	return types.Point{X: scale(p.X, f.X), Y: scale(p.Y, f.Y)}, nil
}

// ScaleBox scales position and size per axis and the font size by the
// uniform factor. Padding, stroke, colours and text are left as they are.
func ScaleBox(a types.Annotation, reference, target types.Dims) (types.Annotation, error) {
	f, err := FactorsFor(reference, target)
	if err != nil {
		return a, err
	}
	return scaleBox(a, f), nil
}

func scaleBox(a types.Annotation, f Factors) types.Annotation {
	out := a
	out.X = scale(a.X, f.X)
	out.Y = scale(a.Y, f.Y)
	out.Width = scale(a.Width, f.X)
	out.Height = scale(a.Height, f.Y)
	out.SizePx = scale(a.SizePx, f.Uniform())
	return out
}

// ScaleAnnotations scales every annotation. The input slice is not modified.
func ScaleAnnotations(anns []types.Annotation, reference, target types.Dims) ([]types.Annotation, error) {
	f, err := FactorsFor(reference, target)
	if err != nil {
		return nil, err
	}
	out := make([]types.Annotation, len(anns))
	for i, a := range anns {
		out[i] = scaleBox(a, f)
	}
	return out, nil
}

// ScalePositions scales single-line text positions the same way ScaleBox
// scales boxes.
func ScalePositions(positions []types.Position, reference, target types.Dims) ([]types.Position, error) {
	f, err := FactorsFor(reference, target)
	if err != nil {
		return nil, err
	}
	out := make([]types.Position, len(positions))
	for i, p := range positions {
		out[i] = types.Position{
			X:        scale(p.X, f.X),
			Y:        scale(p.Y, f.Y),
			FontSize: scale(p.FontSize, f.Uniform()),
			Text:     p.Text,
		}
	}
	return out, nil
}
