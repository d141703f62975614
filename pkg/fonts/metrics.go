package fonts

// Size is the measured ink extent of a string.
type Size struct {
	Width  int
	Height int
}

// Measure returns the rendered width and height of text, taken from the
// union of its glyph bounds. It is deterministic for a given handle.
func Measure(h *Handle, text string) Size {
	if text == "" {
		return Size{}
	}
	b := h.Bounds(text)
	return Size{
		Width:  max(b.Max.X.Ceil()-b.Min.X.Floor(), 0),
		Height: max(b.Max.Y.Ceil()-b.Min.Y.Floor(), 0),
	}
}

// LineHeight is the vertical advance between consecutive lines:
// ascent + descent + size/5.
func LineHeight(h *Handle) int {
	return h.ascent + h.descent + h.SizePx/5
}

// MeasureWidth implements layout.Measurer.
func (h *Handle) MeasureWidth(text string) int {
	return Measure(h, text).Width
}

// Measure is the method form of the package-level Measure.
func (h *Handle) Measure(text string) Size {
	return Measure(h, text)
}

// LineHeight is the method form of the package-level LineHeight.
func (h *Handle) LineHeight() int {
	return LineHeight(h)
}
