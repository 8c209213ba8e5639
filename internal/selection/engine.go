package selection

import (
	"fmt"
	"math"

	"github.com/keagan/clipkart/internal/ai"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/rs/zerolog"
)

// Request is a single selection invocation
type Request struct {
	Boundaries       []scenes.Boundary
	Mode             ai.Mode
	TargetDuration   float64 // seconds, must be positive
	CaptionRequested bool
}

// Engine validates a request, scores, selects and resolves captions.
// It performs no I/O.
type Engine struct {
	logger zerolog.Logger
	scorer *ai.Scorer
}

// NewEngine creates an engine with the given scorer
func NewEngine(logger zerolog.Logger, scorer *ai.Scorer) *Engine {
	if scorer == nil {
		scorer = ai.NewScorer(ai.DefaultVocabulary())
	}
	return &Engine{
		logger: logger.With().Str("component", "selection").Logger(),
		scorer: scorer,
	}
}

// Run returns the chronologically ordered scenes for the short. It fails
// with ErrInvalidInput for malformed requests and ErrNoViableScenes when
// nothing could be selected.
func (e *Engine) Run(req Request) ([]scenes.Selected, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	scored, err := e.scorer.Score(req.Boundaries, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for i, s := range scored {
		e.logger.Debug().
			Int("scene", i).
			Float64("start", s.Start).
			Float64("end", s.End).
			Float64("score", s.Score).
			Msg("scored scene")
	}

	selected := Select(scored, req.TargetDuration)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: none of %d scenes is at least %.1fs long or fits %.1fs",
			ErrNoViableScenes, len(req.Boundaries), MinSceneDuration, req.TargetDuration)
	}

	selected = ResolveCaptions(selected, req.CaptionRequested)

	captioned := 0
	for _, s := range selected {
		if s.CaptionEnabled {
			captioned++
		}
	}

	e.logger.Info().
		Int("scenes", len(req.Boundaries)).
		Int("selected", len(selected)).
		Int("captioned", captioned).
		Float64("duration", scenes.TotalDuration(selected)).
		Float64("target", req.TargetDuration).
		Msg("scene selection complete")

	return selected, nil
}

// Validate checks a request before any scoring happens
func Validate(req Request) error {
	if len(req.Boundaries) == 0 {
		return fmt.Errorf("%w: boundary list is empty", ErrInvalidInput)
	}
	if math.IsNaN(req.TargetDuration) || math.IsInf(req.TargetDuration, 0) || req.TargetDuration <= 0 {
		return fmt.Errorf("%w: target duration must be positive, got %v", ErrInvalidInput, req.TargetDuration)
	}
	for i, b := range req.Boundaries {
		if !b.Valid() {
			return fmt.Errorf("%w: boundary %d [%v, %v] is malformed", ErrInvalidInput, i, b.Start, b.End)
		}
	}
	if req.Mode == nil {
		return fmt.Errorf("%w: scoring mode is required", ErrInvalidInput)
	}
	if req.Mode.Len() != len(req.Boundaries) {
		return fmt.Errorf("%w: %d boundaries but %d per-scene signals",
			ErrInvalidInput, len(req.Boundaries), req.Mode.Len())
	}
	return nil
}
