package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs       []string
	Output       string
	ReEncode     bool
	Total        time.Duration // expected output length, for progress
	ProgressFunc ProgressFunc
}

// Concat merges multiple video files into one. Without ReEncode the
// inputs must share codecs and dimensions.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	concatFile, err := createConcatFile(opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
	}

	if opts.ReEncode {
		args = append(args, e.encodeArgs("", "")...)
	} else {
		args = append(args, "-c", "copy")
	}

	if strings.EqualFold(filepath.Ext(opts.Output), ".mp4") {
		args = append(args, "-movflags", "+faststart")
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		Total:           opts.Total,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

// createConcatFile generates a temporary file list for the concat demuxer
func createConcatFile(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "clipkart-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		// Single quotes inside a quoted path are written as '\''
		quoted := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", quoted); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}
