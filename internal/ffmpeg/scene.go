package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/keagan/clipkart/pkg/util"
)

// sampleWidth bounds decoded sample frames; motion only needs coarse detail
const sampleWidth = 320

// DetectScenes returns the timestamps, in seconds, where ffmpeg's scene
// change score exceeds threshold.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			if !strings.Contains(line, "pts_time:") {
				return
			}
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	cuts := parseSceneOutput(output)
	e.logger.Info().Int("cuts", len(cuts)).Msg("scene detection complete")
	return cuts, nil
}

// parseSceneOutput extracts scene change timestamps from showinfo output
func parseSceneOutput(output string) []float64 {
	var cuts []float64

	for _, line := range strings.Split(output, "\n") {
		_, rest, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
			cuts = append(cuts, seconds)
		}
	}

	return cuts
}

// ExtractFrame writes the frame at timestamp seconds to output as an image,
// scaled down to sampleWidth.
func (e *Executor) ExtractFrame(ctx context.Context, input string, at float64, output string) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	args := []string{
		"-ss", util.FormatSeconds(at),
		"-i", input,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", sampleWidth),
		output,
	}

	return e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame extraction")
		},
	})
}

// SampleFrames decodes frames evenly drawn from the scene span, one per
// second of scene duration.
func (e *Executor) SampleFrames(ctx context.Context, video string, b scenes.Boundary) ([]image.Image, error) {
	dir, err := os.MkdirTemp("", "clipkart-frames-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	times := scenes.SampleTimes(b)
	frames := make([]image.Image, 0, len(times))

	for i, at := range times {
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if err := e.ExtractFrame(ctx, video, at, path); err != nil {
			return nil, fmt.Errorf("extract frame at %.2fs: %w", at, err)
		}

		img, err := decodeImage(path)
		if err != nil {
			// ffmpeg writes nothing when seeking past the last frame
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		frames = append(frames, img)
	}

	return frames, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Keyframe decodes the single frame at timestamp seconds
func (e *Executor) Keyframe(ctx context.Context, video string, at float64) (image.Image, error) {
	tmp, err := os.CreateTemp("", "clipkart-keyframe-*.png")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := e.ExtractFrame(ctx, video, at, path); err != nil {
		e.logger.Warn().Err(err).Float64("at", at).Msg("keyframe extraction failed")
		return nil, err
	}
	return decodeImage(path)
}
