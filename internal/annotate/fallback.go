package annotate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds the primary annotation call
const DefaultTimeout = 5 * time.Minute

// Fallback tries a primary source under a timeout and switches to a
// secondary one when the primary fails or finds nothing. It never retries.
type Fallback struct {
	logger    zerolog.Logger
	primary   Source
	secondary Source
	timeout   time.Duration
}

// NewFallback wraps primary with secondary. A nil primary goes straight to
// the secondary source.
func NewFallback(logger zerolog.Logger, primary, secondary Source, timeout time.Duration) *Fallback {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fallback{
		logger:    logger.With().Str("component", "annotate").Logger(),
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
	}
}

func (f *Fallback) Detect(ctx context.Context, video string) (Result, error) {
	if f.primary != nil {
		res, err := f.detectPrimary(ctx, video)
		if err == nil {
			return res, nil
		}
		// Caller cancellation is not a reason to fall back
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		f.logger.Warn().Err(err).Msg("annotation unavailable, falling back to local scene detection")
	}

	if f.secondary == nil {
		return Result{}, errors.New("no scene source available")
	}

	res, err := f.secondary.Detect(ctx, video)
	if err != nil {
		return Result{}, fmt.Errorf("local scene detection failed: %w", err)
	}
	if err := res.Validate(); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (f *Fallback) detectPrimary(ctx context.Context, video string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.primary.Detect(ctx, video)
	if err != nil {
		return Result{}, err
	}
	if len(res.Boundaries) == 0 {
		return Result{}, errors.New("no shots detected")
	}
	if err := res.Validate(); err != nil {
		return Result{}, err
	}
	return res, nil
}
