package video

import "strings"

// captionWidthRatio is the share of frame width a caption line may use
const captionWidthRatio = 0.8

// CaptionWidth estimates how many characters fit on one caption line
func CaptionWidth(frameWidth, fontSize int) int {
	if fontSize <= 0 {
		return 0
	}
	// average glyph advance is roughly 0.55 em for sans fonts
	n := int(float64(frameWidth) * captionWidthRatio / (float64(fontSize) * 0.55))
	return max(n, 8)
}

// WrapCaption breaks text into lines of at most width characters on word
// boundaries. Words longer than width get their own line.
func WrapCaption(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return strings.Join(words, " ")
	}

	var lines []string
	var line strings.Builder
	for _, w := range words {
		if line.Len() > 0 && line.Len()+1+len(w) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	lines = append(lines, line.String())

	return strings.Join(lines, "\n")
}
