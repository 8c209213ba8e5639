package annotate

import (
	"context"
	"fmt"

	"github.com/keagan/clipkart/internal/ffmpeg"
	"github.com/rs/zerolog"
)

// DefaultSceneThreshold is the ffmpeg scene score above which a cut is
// reported.
const DefaultSceneThreshold = 0.3

// ShotDetector is the subset of ffmpeg.Executor used for local detection
type ShotDetector interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
	DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error)
}

// Local detects shot boundaries with ffmpeg's scene-change filter. It never
// annotates.
type Local struct {
	logger    zerolog.Logger
	detector  ShotDetector
	threshold float64
}

// NewLocal creates a local shot detector
func NewLocal(logger zerolog.Logger, detector ShotDetector, threshold float64) *Local {
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}
	return &Local{
		logger:    logger.With().Str("component", "annotate-local").Logger(),
		detector:  detector,
		threshold: threshold,
	}
}

// Detect returns contiguous scene boundaries covering the whole video
func (l *Local) Detect(ctx context.Context, video string) (Result, error) {
	info, err := l.detector.ProbeVideo(ctx, video)
	if err != nil {
		return Result{}, fmt.Errorf("probe failed: %w", err)
	}

	cuts, err := l.detector.DetectScenes(ctx, video, l.threshold)
	if err != nil {
		return Result{}, err
	}

	boundaries := FromCuts(cuts, info.Duration.Seconds())
	if len(boundaries) == 0 {
		return Result{}, fmt.Errorf("video %s has no measurable duration", video)
	}

	l.logger.Info().
		Int("scenes", len(boundaries)).
		Dur("duration", info.Duration).
		Msg("local scene detection complete")

	return Result{Boundaries: boundaries}, nil
}
