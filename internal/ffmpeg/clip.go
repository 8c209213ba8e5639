package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/clipkart/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	End          time.Duration
	Output       string
	Filter       string // -vf chain applied while re-encoding
	CopyCodec    bool   // If true, use -c copy for fast extraction; Filter is ignored
	VideoCodec   string
	AudioCodec   string
	ProgressFunc ProgressFunc
}

// ExtractClip cuts a segment from a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	// Input seeking; frame accurate because the clip is re-encoded
	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		if opts.Filter != "" {
			args = append(args, "-vf", opts.Filter)
		}
		args = append(args, e.encodeArgs(opts.VideoCodec, opts.AudioCodec)...)
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		Total:           duration,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// encodeArgs returns codec, quality and pixel format arguments using the
// executor's preset and CRF.
func (e *Executor) encodeArgs(videoCodec, audioCodec string) []string {
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	return []string{
		"-c:v", videoCodec,
		"-preset", e.preset,
		"-crf", fmt.Sprintf("%d", e.crf),
		"-pix_fmt", "yuv420p",
		"-c:a", audioCodec,
		"-ar", "44100",
		"-ac", "2",
	}
}
