package ffmpeg

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%f", fps))
	return fb
}

// Crop adds a crop filter
func (fb *FilterBuilder) Crop(width, height, x, y int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d:%d:%d", width, height, x, y))
	return fb
}

// Vertical fits a srcW x srcH frame into a dstW x dstH portrait canvas.
// Wider sources are center-cropped to the target aspect ratio; narrower
// ones are scaled to fit and padded.
func (fb *FilterBuilder) Vertical(srcW, srcH, dstW, dstH int) *FilterBuilder {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return fb
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	if srcAspect > dstAspect {
		cropW := even(int(float64(srcH) * dstAspect))
		x := (srcW - cropW) / 2
		fb.Crop(cropW, srcH, x, 0)
		fb.Scale(dstW, dstH)
	} else {
		fb.filters = append(fb.filters,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", dstW, dstH),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", dstW, dstH),
		)
	}
	fb.filters = append(fb.filters, "setsar=1")
	return fb
}

// CaptionStyle describes burned-in caption appearance
type CaptionStyle struct {
	Font       string // font file path or fontconfig name
	FontSize   int
	FontColor  string
	BoxColor   string
	BoxOpacity float64
	MarginY    int // distance from the bottom edge
}

// DrawText burns the contents of textFile at the bottom of the frame.
// The text is read from a file so speech transcripts need no escaping.
func (fb *FilterBuilder) DrawText(textFile string, style CaptionStyle) *FilterBuilder {
	if textFile == "" {
		return fb
	}

	parts := []string{
		"textfile=" + escapeFilterPath(textFile),
		fmt.Sprintf("fontsize=%d", style.FontSize),
		"fontcolor=" + style.FontColor,
		"x=(w-text_w)/2",
		fmt.Sprintf("y=h-text_h-%d", style.MarginY),
		"box=1",
		fmt.Sprintf("boxcolor=%s@%.2f", style.BoxColor, style.BoxOpacity),
		"boxborderw=12",
		"fix_bounds=1",
	}
	if style.Font != "" {
		if strings.ContainsAny(style.Font, `/\`) {
			parts = append(parts, "fontfile="+escapeFilterPath(style.Font))
		} else {
			parts = append(parts, "font='"+style.Font+"'")
		}
	}

	fb.filters = append(fb.filters, "drawtext="+strings.Join(parts, ":"))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// BuildAll returns all filters as a slice
func (fb *FilterBuilder) BuildAll() []string {
	return fb.filters
}

func even(n int) int {
	return n &^ 1
}

// escapeFilterPath escapes a file path for use as a filter option value
func escapeFilterPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if runtime.GOOS == "windows" {
		absPath = strings.ReplaceAll(absPath, "\\", "/")
	}

	escaped := strings.ReplaceAll(absPath, ":", "\\:")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	return escaped
}
