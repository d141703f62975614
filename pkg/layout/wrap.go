// Package layout breaks text into lines that fit a pixel width.
package layout

import "strings"

// Measurer reports the rendered width of a string in pixels.
type Measurer interface {
	MeasureWidth(text string) int
}

// Wrap greedily packs the whitespace-separated words of text into lines no
// wider than maxWidth. A word that is wider than maxWidth on its own keeps a
// line to itself and is never split. Empty or blank text yields no lines.
// A maxWidth of zero or less puts every word on its own line.
func Wrap(text string, maxWidth int, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, 4)
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if maxWidth > 0 && m.MeasureWidth(candidate) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	return append(lines, line)
}

// BlockHeight is the height of n lines at the given line height.
func BlockHeight(n, lineHeight int) int {
	return n * lineHeight
}
