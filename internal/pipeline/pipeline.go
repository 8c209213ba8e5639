// Package pipeline runs one short end to end: fetch the source, detect and
// score scenes, select them, and render the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/keagan/clipkart/internal/ai"
	"github.com/keagan/clipkart/internal/annotate"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/keagan/clipkart/internal/selection"
	"github.com/keagan/clipkart/internal/source"
	"github.com/keagan/clipkart/pkg/util"
	"github.com/rs/zerolog"
)

// Fetcher resolves a source reference to a local video
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*source.Video, error)
}

// Renderer writes the selected scenes to output
type Renderer interface {
	Render(ctx context.Context, video string, selected []scenes.Selected, output string) (string, error)
}

// Deps are the collaborators a pipeline drives
type Deps struct {
	Fetcher  Fetcher
	Scenes   annotate.Source
	Sampler  ai.FrameSampler
	Engine   *selection.Engine
	Renderer Renderer
}

// Pipeline orchestrates the entire video processing workflow
type Pipeline struct {
	logger   zerolog.Logger
	fetcher  Fetcher
	scenes   annotate.Source
	sampler  ai.FrameSampler
	engine   *selection.Engine
	renderer Renderer
	now      func() time.Time
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, deps Deps) (*Pipeline, error) {
	if deps.Fetcher == nil || deps.Scenes == nil || deps.Sampler == nil || deps.Renderer == nil {
		return nil, errors.New("pipeline requires a fetcher, scene source, frame sampler and renderer")
	}
	engine := deps.Engine
	if engine == nil {
		engine = selection.NewEngine(logger, nil)
	}

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		fetcher:  deps.Fetcher,
		scenes:   deps.Scenes,
		sampler:  deps.Sampler,
		engine:   engine,
		renderer: deps.Renderer,
		now:      time.Now,
	}, nil
}

// Run produces one short. Failures are returned as *StageError. obs may
// be nil.
func (p *Pipeline) Run(ctx context.Context, req Request, obs Observer) (*Result, error) {
	progress := newMonotonic(obs)

	if !ValidFormat(req.Format) {
		return nil, &StageError{Stage: StageSetup, Err: fmt.Errorf("invalid format: %s", req.Format)}
	}
	if err := util.EnsureDir(req.OutputDir); err != nil {
		return nil, &StageError{Stage: StageSetup, Err: fmt.Errorf("cannot create output directory: %w", err)}
	}

	p.logger.Info().
		Str("source", req.Source).
		Float64("target", req.TargetDuration).
		Str("format", req.Format).
		Bool("captions", req.Captions).
		Msg("starting pipeline")

	progress.OnProgress(ProgressDownload, StageDownloading)
	video, err := p.fetcher.Fetch(ctx, req.Source)
	if err != nil {
		return nil, &StageError{Stage: StageDownload, Err: err}
	}
	defer video.Cleanup()

	progress.OnProgress(ProgressDetect, StageDetecting)
	detected, err := p.scenes.Detect(ctx, video.Path)
	if err != nil {
		return nil, &StageError{Stage: StageProcessing, Err: fmt.Errorf("scene detection failed: %w", err)}
	}

	progress.OnProgress(ProgressAnalyze, StageAnalyzing)
	mode, err := p.scoringMode(ctx, video.Path, detected)
	if err != nil {
		return nil, &StageError{Stage: StageProcessing, Err: err}
	}

	selected, err := p.engine.Run(selection.Request{
		Boundaries:       detected.Boundaries,
		Mode:             mode,
		TargetDuration:   req.TargetDuration,
		CaptionRequested: req.Captions,
	})
	if err != nil {
		return nil, &StageError{Stage: StageProcessing, Err: err}
	}

	progress.OnProgress(ProgressVertical, StageConverting)
	if req.Captions {
		progress.OnProgress(ProgressCaptions, StageCaptioning)
	}
	progress.OnProgress(ProgressExport, StageExporting)

	output := filepath.Join(req.OutputDir, util.OutputName(p.now(), req.Format))
	output, err = p.renderer.Render(ctx, video.Path, selected, output)
	if err != nil {
		return nil, &StageError{Stage: StageProcessing, Err: fmt.Errorf("render failed: %w", err)}
	}

	progress.OnProgress(ProgressCleanup, StageCleaningUp)
	video.Cleanup()
	progress.OnProgress(ProgressComplete, StageComplete)

	res := &Result{
		OutputPath: output,
		Selected:   selected,
		Annotated:  detected.Annotated(),
		Duration:   scenes.TotalDuration(selected),
	}

	p.logger.Info().
		Str("output", output).
		Int("scenes", len(selected)).
		Float64("duration", res.Duration).
		Bool("annotated", res.Annotated).
		Msg("pipeline complete")

	return res, nil
}

// scoringMode picks annotated scoring when annotations exist and otherwise
// measures motion for every scene.
func (p *Pipeline) scoringMode(ctx context.Context, video string, detected annotate.Result) (ai.Mode, error) {
	if detected.Annotated() {
		return ai.Annotated{Annotations: detected.Annotations}, nil
	}

	p.logger.Info().Int("scenes", len(detected.Boundaries)).Msg("no annotations, scoring by motion")
	motion, err := ai.MotionScores(ctx, p.logger, p.sampler, video, detected.Boundaries)
	if err != nil {
		return nil, fmt.Errorf("motion analysis failed: %w", err)
	}
	return ai.MotionOnly{Motion: motion}, nil
}

// NormalizeTarget returns the target duration to use for a requested value.
// Non-positive or non-finite requests fall back to 60 seconds.
func NormalizeTarget(target float64) float64 {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return 60
	}
	return target
}
