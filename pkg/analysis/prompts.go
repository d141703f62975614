package analysis

import (
	"fmt"
	"strings"

	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// SystemPromptTemplate is formatted with the reference width, height and
// the comma-separated font list.
const SystemPromptTemplate = `You are a meme layout expert who writes short, funny captions and places them on meme templates.

You receive:
1. A meme template image resized to %[1]dx%[2]d pixels (the reference frame)
2. Template information: name, number of text boxes and suggested box areas
3. A topic for the meme

Work in %[1]dx%[2]d reference coordinates only. The system scales them to the real image.

Placement rules:
- Every box must lie inside 0..%[1]d horizontally and 0..%[2]d vertically
- Keep boxes about 40px from the edges
- Follow the template's box areas when they are given
- Follow the natural reading order: top to bottom, left to right
- Leave room for padding: width and height must both exceed 2*padding

Font size guidance (reference frame):
- Headlines: 32-40
- Standard text: 24-30
- Longer text: 18-24
- font_name must be one of: %[3]s
- stroke_width must not exceed font_size

Return JSON only:
{
  "annotations": [
    {
      "x": 0, "y": 0, "width": 0, "height": 0,
      "text": "string",
      "font_size": 0,
      "font_name": "Impact.ttf",
      "text_color": [255, 255, 255],
      "outline_color": [0, 0, 0],
      "stroke_width": 2,
      "padding": 10
    }
  ]
}

x and y are the top-left corner of the box. The number of annotations must match the template's box count.
No markdown, no code fences, no comments, no trailing commas.`

// SimpleTestPrompt checks whether the model can see images at all.
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// TemplateInfo describes the meme template sent alongside the image.
type TemplateInfo struct {
	Name     string             `json:"name"`
	BoxCount int                `json:"box_count"`
	Original types.Dims         `json:"original"`
	Boxes    []types.Annotation `json:"boxes,omitempty"`
}

// SystemPrompt renders the system prompt for a reference frame and font list.
func SystemPrompt(frame types.Dims, fonts []string) string {
	return fmt.Sprintf(SystemPromptTemplate, frame.Width, frame.Height, strings.Join(fonts, ", "))
}

// UserPrompt renders the per-request prompt.
func UserPrompt(info TemplateInfo, frame types.Dims, query string) string {
	var b strings.Builder
	b.WriteString("<Meme Template>\n")
	if info.Name != "" {
		fmt.Fprintf(&b, "%s:\n", info.Name)
	}
	if info.BoxCount > 0 {
		fmt.Fprintf(&b, "box_count: %d\n", info.BoxCount)
	}
	if info.Original.Valid() {
		fmt.Fprintf(&b, "original dimensions: %s (reference frame %s)\n", info.Original, frame)
	}
	if len(info.Boxes) > 0 {
		b.WriteString("Box areas (reference frame):\n")
		for i, box := range info.Boxes {
			fmt.Fprintf(&b, "- box %d: x=%d y=%d width=%d height=%d padding=%d\n",
				i+1, box.X, box.Y, box.Width, box.Height, box.Padding)
		}
	}
	b.WriteString("</Meme Template>\n\n")
	fmt.Fprintf(&b, "Based on the template above, give the meme annotations as JSON for this topic:\n%s\n", query)
	return b.String()
}
