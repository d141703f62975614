package fonts

import (
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Handle is a loaded font at one pixel size. Handles are shared between
// concurrent renders; the underlying face is not safe for concurrent use, so
// every face access goes through mu.
type Handle struct {
	// ID is the identifier the handle was loaded from, which may differ
	// from the requested one after a fallback.
	ID     string
	SizePx int

	mu      sync.Mutex
	face    font.Face
	ascent  int
	descent int
}

func newHandle(id string, sizePx int, f *opentype.Font) (*Handle, error) {
	var face font.Face
	if f == nil {
		face = basicfont.Face7x13
	} else {
		var err error
		face, err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(sizePx),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, err
		}
	}

	m := face.Metrics()
	return &Handle{
		ID:      id,
		SizePx:  sizePx,
		face:    face,
		ascent:  m.Ascent.Ceil(),
		descent: m.Descent.Ceil(),
	}, nil
}

// Ascent is the distance in pixels from the top of a line to its baseline.
func (h *Handle) Ascent() int { return h.ascent }

// Descent is the distance in pixels from the baseline to the bottom of a line.
func (h *Handle) Descent() int { return h.descent }

// Bounds returns the ink bounds of s relative to a dot at the origin.
func (h *Handle) Bounds(s string) fixed.Rectangle26_6 {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, _ := font.BoundString(h.face, s)
	return b
}

// Draw renders s with its baseline origin at dot.
func (h *Handle) Draw(dst draw.Image, src image.Image, dot fixed.Point26_6, s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := font.Drawer{Dst: dst, Src: src, Face: h.face, Dot: dot}
	d.DrawString(s)
}
