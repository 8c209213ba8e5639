package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

// DefaultMotionScore is used when a scene yields fewer than two frames
const DefaultMotionScore = 0.5

// FrameSampler returns decoded frames evenly drawn from a scene span
type FrameSampler interface {
	SampleFrames(ctx context.Context, video string, b scenes.Boundary) ([]image.Image, error)
}

// EstimateMotion averages the mean absolute intensity difference of
// adjacent frames and normalizes it into [0, 1].
func EstimateMotion(frames []image.Image) float64 {
	if len(frames) < 2 {
		return DefaultMotionScore
	}

	bounds := frames[0].Bounds()
	width, height := uint(bounds.Dx()), uint(bounds.Dy())
	if width == 0 || height == 0 {
		return DefaultMotionScore
	}

	var sum float64
	prev := toGray(frames[0], width, height)
	for i := 1; i < len(frames); i++ {
		curr := toGray(frames[i], width, height)
		sum += meanAbsDiff(prev, curr)
		prev = curr
	}

	score := sum / (float64(len(frames)-1) * 255.0)
	return math.Min(1.0, score)
}

// toGray converts a frame to single-channel intensity at the given size
func toGray(img image.Image, width, height uint) *image.Gray {
	b := img.Bounds()
	if uint(b.Dx()) != width || uint(b.Dy()) != height {
		img = resize.Resize(width, height, img, resize.Bilinear)
		b = img.Bounds()
	}

	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func meanAbsDiff(a, b *image.Gray) float64 {
	if len(a.Pix) == 0 {
		return 0
	}

	var total float64
	for i := range a.Pix {
		total += math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
	}
	return total / float64(len(a.Pix))
}

// MotionScores samples every scene and estimates its motion. A sampling
// failure for one scene falls back to the default score for that scene.
func MotionScores(ctx context.Context, logger zerolog.Logger, sampler FrameSampler, video string, bs []scenes.Boundary) ([]float64, error) {
	logger = logger.With().Str("component", "motion").Logger()

	scores := make([]float64, len(bs))
	for i, b := range bs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frames, err := sampler.SampleFrames(ctx, video, b)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("frame sampling interrupted: %w", ctx.Err())
			}
			logger.Warn().Err(err).Int("scene", i).Msg("frame sampling failed, using default motion")
			scores[i] = DefaultMotionScore
			continue
		}

		scores[i] = EstimateMotion(frames)
		logger.Debug().
			Int("scene", i).
			Int("frames", len(frames)).
			Float64("motion", scores[i]).
			Msg("motion estimated")
	}

	return scores, nil
}
