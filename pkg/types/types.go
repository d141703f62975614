package types

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"
)

// Default annotation style, applied to keys missing from decoded JSON.
const (
	DefaultFontSize    = 40
	DefaultFontName    = "Arial.ttf"
	DefaultStrokeWidth = 2
	DefaultPadding     = 20
)

// Dims is a width/height pair in pixels.
type Dims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (d Dims) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ParseDims parses "WxH" (e.g. "512x512").
func ParseDims(s string) (Dims, error) {
	var d Dims
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return d, fmt.Errorf("invalid dimensions %q: want WxH", s)
	}
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &d.Width, &d.Height); err != nil {
		return d, fmt.Errorf("invalid dimensions %q: %w", s, err)
	}
	if !d.Valid() {
		return d, fmt.Errorf("invalid dimensions %q: must be positive", s)
	}
	return d, nil
}

// Point is a pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RGB is an opaque colour triple, encoded in JSON as [r, g, b].
type RGB [3]uint8

// Color converts to an opaque color.NRGBA.
func (c RGB) Color() color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 0xff}
}

// Common colours.
var (
	White = RGB{255, 255, 255}
	Black = RGB{0, 0, 0}
)

// FontSpec identifies a renderable font at a pixel size.
type FontSpec struct {
	Identifier string `json:"font_name"`
	SizePx     int    `json:"font_size"`
}

// Anchor selects how Annotation.X is interpreted.
type Anchor string

const (
	// AnchorLeft treats X as the left edge of the box.
	AnchorLeft Anchor = "left"
	// AnchorCenter treats X as the horizontal centre of the box.
	AnchorCenter Anchor = "center"
)

// Annotation is one text box: geometry, text and style.
type Annotation struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Text   string `json:"text"`
	FontSpec
	TextColor    RGB    `json:"text_color"`
	OutlineColor RGB    `json:"outline_color"`
	StrokeWidth  int    `json:"stroke_width"`
	Padding      int    `json:"padding"`
	Anchor       Anchor `json:"anchor,omitempty"`
}

// NewAnnotation returns an annotation with the default style.
func NewAnnotation(x, y, width, height int, text string) Annotation {
	return Annotation{
		X:            x,
		Y:            y,
		Width:        width,
		Height:       height,
		Text:         text,
		FontSpec:     FontSpec{Identifier: DefaultFontName, SizePx: DefaultFontSize},
		TextColor:    White,
		OutlineColor: Black,
		StrokeWidth:  DefaultStrokeWidth,
		Padding:      DefaultPadding,
		Anchor:       AnchorLeft,
	}
}

// UnmarshalJSON decodes an annotation, keeping the default style for
// missing keys.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	type plain Annotation
	v := plain(NewAnnotation(0, 0, 0, 0, ""))
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Annotation(v)
	return nil
}

// Left returns the x coordinate of the box's left edge.
func (a Annotation) Left() int {
	if a.Anchor == AnchorCenter {
		return a.X - FloorDiv(a.Width, 2)
	}
	return a.X
}

// EffectiveWidth is the width available for text, floored at zero.
func (a Annotation) EffectiveWidth() int {
	return max(a.Width-2*a.Padding, 0)
}

// EffectiveHeight is the height available for text, floored at zero.
func (a Annotation) EffectiveHeight() int {
	return max(a.Height-2*a.Padding, 0)
}

// Validate checks the geometric bounds of the annotation. It does not look
// at the text content.
func (a Annotation) Validate() error {
	switch {
	case a.Width <= 0 || a.Height <= 0:
		return fmt.Errorf("box size %dx%d is not positive", a.Width, a.Height)
	case a.Padding < 0:
		return fmt.Errorf("negative padding %d", a.Padding)
	case a.StrokeWidth < 0:
		return fmt.Errorf("negative stroke width %d", a.StrokeWidth)
	case a.SizePx <= 0:
		return fmt.Errorf("font size %d is not positive", a.SizePx)
	case a.StrokeWidth > a.SizePx:
		return fmt.Errorf("stroke width %d exceeds font size %d", a.StrokeWidth, a.SizePx)
	case a.EffectiveWidth() <= 0 || a.EffectiveHeight() <= 0:
		return fmt.Errorf("padding %d leaves no room in %dx%d box", a.Padding, a.Width, a.Height)
	case a.Anchor != "" && a.Anchor != AnchorLeft && a.Anchor != AnchorCenter:
		return fmt.Errorf("unknown anchor %q", a.Anchor)
	}
	return nil
}

// Position is a single-line text placement in the reference frame, as
// produced by older analysis prompts. X is the horizontal centre.
type Position struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	FontSize int    `json:"font_size"`
	Text     string `json:"text"`
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
