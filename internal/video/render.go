// Package video turns a selection of scenes into a vertical short.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keagan/clipkart/internal/ffmpeg"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/keagan/clipkart/pkg/util"
	"github.com/rs/zerolog"
)

// Editor is the subset of ffmpeg.Executor the renderer drives
type Editor interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Options configures the output frame and caption appearance
type Options struct {
	Width   int
	Height  int
	FPS     float64
	Caption ffmpeg.CaptionStyle
	TempDir string // parent for per-render scratch directories; empty = os temp
}

// DefaultOptions renders 1080x1920 at 24fps with bottom captions
func DefaultOptions() Options {
	return Options{
		Width:  1080,
		Height: 1920,
		FPS:    24,
		Caption: ffmpeg.CaptionStyle{
			Font:       "Arial",
			FontSize:   32,
			FontColor:  "white",
			BoxColor:   "black",
			BoxOpacity: 0.6,
			MarginY:    96,
		},
	}
}

// Renderer cuts selected scenes into 9:16 segments, burns captions where
// enabled, and concatenates them in the given order.
type Renderer struct {
	logger zerolog.Logger
	editor Editor
	opts   Options
}

// NewRenderer creates a renderer
func NewRenderer(logger zerolog.Logger, editor Editor, opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Caption.FontSize <= 0 {
		opts.Caption = def.Caption
	}
	return &Renderer{
		logger: logger.With().Str("component", "renderer").Logger(),
		editor: editor,
		opts:   opts,
	}
}

// Render writes the short to output and returns its path
func (r *Renderer) Render(ctx context.Context, video string, selected []scenes.Selected, output string) (string, error) {
	if len(selected) == 0 {
		return "", errors.New("no scenes to render")
	}
	if output == "" {
		return "", errors.New("output path is required")
	}

	info, err := r.editor.ProbeVideo(ctx, video)
	if err != nil {
		return "", fmt.Errorf("probe failed: %w", err)
	}

	if r.opts.TempDir != "" {
		if err := util.EnsureDir(r.opts.TempDir); err != nil {
			return "", fmt.Errorf("failed to create temp dir: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(r.opts.TempDir, "clipkart-render-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	r.logger.Info().
		Str("video", video).
		Int("scenes", len(selected)).
		Int("src_width", info.Width).
		Int("src_height", info.Height).
		Msg("rendering short")

	segments := make([]string, 0, len(selected))
	for i, s := range selected {
		segment, err := r.renderSegment(ctx, workDir, i, video, info, s)
		if err != nil {
			return "", fmt.Errorf("scene %d: %w", i, err)
		}
		segments = append(segments, segment)
	}

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	err = r.editor.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs: segments,
		Output: output,
		Total:  util.Seconds(scenes.TotalDuration(selected)),
	})
	if err != nil {
		return "", err
	}

	r.logger.Info().Str("output", output).Msg("render complete")
	return output, nil
}

func (r *Renderer) renderSegment(ctx context.Context, dir string, i int, video string, info *ffmpeg.VideoInfo, s scenes.Selected) (string, error) {
	filter := NewFilter(info.Width, info.Height, r.opts)

	if s.CaptionEnabled && s.Annotation != nil {
		textFile := filepath.Join(dir, fmt.Sprintf("caption_%03d.txt", i))
		text := WrapCaption(s.Annotation.Speech, CaptionWidth(r.opts.Width, r.opts.Caption.FontSize))
		if err := os.WriteFile(textFile, []byte(text), 0644); err != nil {
			return "", fmt.Errorf("failed to write caption: %w", err)
		}
		filter.DrawText(textFile, r.opts.Caption)
	}

	segment := filepath.Join(dir, fmt.Sprintf("segment_%03d.mp4", i))
	err := r.editor.ExtractClip(ctx, video, ffmpeg.ClipOptions{
		Start:  util.Seconds(s.Start),
		End:    util.Seconds(s.End),
		Output: segment,
		Filter: filter.Build(),
	})
	if err != nil {
		return "", err
	}
	return segment, nil
}

// NewFilter returns the vertical conversion chain for a source frame size
func NewFilter(srcW, srcH int, opts Options) *ffmpeg.FilterBuilder {
	return ffmpeg.NewFilterBuilder().
		Vertical(srcW, srcH, opts.Width, opts.Height).
		FPS(opts.FPS)
}
