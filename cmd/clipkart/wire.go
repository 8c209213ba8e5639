package main

import (
	"context"
	"errors"

	"github.com/keagan/clipkart/internal/annotate"
	"github.com/keagan/clipkart/internal/config"
	"github.com/keagan/clipkart/internal/ffmpeg"
	"github.com/keagan/clipkart/internal/jobs"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/keagan/clipkart/internal/selection"
	"github.com/keagan/clipkart/internal/source"
	"github.com/keagan/clipkart/internal/video"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// closers collects cleanup for resources opened while wiring
type closers []func() error

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		Preset:      cfg.FFmpeg.Preset,
		CRF:         cfg.FFmpeg.CRF,
	})
}

// newSceneSource builds the boundary and annotation source for the
// configured provider. The cloud provider falls back to local shot
// detection, labeled by CLIP when a model is configured.
func newSceneSource(ctx context.Context, cfg *config.Config, exec *ffmpeg.Executor) (annotate.Source, closers, error) {
	logger := log.Logger
	var cl closers

	local := annotate.Source(annotate.NewLocal(logger, exec, cfg.Annotate.SceneThreshold))
	if cfg.Annotate.Provider == config.ProviderNone {
		return local, cl, nil
	}

	if cfg.Annotate.ModelPath != "" {
		labeler, err := annotate.NewCLIPLabeler(logger, annotate.CLIPOptions{
			ModelPath:     cfg.Annotate.ModelPath,
			PromptsPath:   cfg.Annotate.PromptsPath,
			LibraryPath:   cfg.Annotate.LibraryPath,
			TopK:          cfg.Annotate.TopK,
			MinConfidence: cfg.Annotate.MinConfidence,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("CLIP labeling disabled")
		} else {
			cl = append(cl, labeler.Close)
			local = annotate.NewLabeled(logger, local, exec, labeler)
		}
	}

	if cfg.Annotate.Provider == config.ProviderLocal {
		return local, cl, nil
	}

	vi, err := annotate.NewVideoIntelligence(ctx, logger, annotate.VideoIntelligenceOptions{
		CredentialsFile: cfg.Annotate.CredentialsFile,
		LanguageCode:    cfg.Annotate.LanguageCode,
		DumpPath:        cfg.Annotate.DumpPath,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("video intelligence unavailable, using local scene detection")
		return local, cl, nil
	}
	cl = append(cl, vi.Close)

	return annotate.NewFallback(logger, vi, local, cfg.Annotate.Timeout), cl, nil
}

func renderOptions(cfg *config.Config) video.Options {
	return video.Options{
		Width:  cfg.Render.Width,
		Height: cfg.Render.Height,
		FPS:    cfg.Render.FPS,
		Caption: ffmpeg.CaptionStyle{
			Font:       cfg.Render.FontName,
			FontSize:   cfg.Render.FontSize,
			FontColor:  cfg.Render.FontColor,
			BoxColor:   cfg.Render.BoxColor,
			BoxOpacity: cfg.Render.BoxOpacity,
			MarginY:    cfg.Render.CaptionMargin,
		},
		TempDir: cfg.TempDir,
	}
}

// newPipeline wires every collaborator a run needs. Served pipelines take
// refs from remote callers and only fetch remote videos.
func newPipeline(ctx context.Context, cfg *config.Config, served bool) (*pipeline.Pipeline, closers, error) {
	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, nil, err
	}

	scenes, cl, err := newSceneSource(ctx, cfg, exec)
	if err != nil {
		return nil, nil, err
	}

	fetcher := source.NewFetcher(log.Logger, nil, source.Options{
		YTDLPPath:   cfg.Source.YTDLPPath,
		WorkDir:     cfg.WorkDir,
		Timeout:     cfg.Source.Timeout,
		RemoteOnly:  served,
		YouTubeOnly: served && !cfg.Source.AllowDirectHTTP,
	})

	pipe, err := pipeline.New(log.Logger, pipeline.Deps{
		Fetcher:  fetcher,
		Scenes:   scenes,
		Sampler:  exec,
		Engine:   selection.NewEngine(log.Logger, nil),
		Renderer: video.NewRenderer(log.Logger, exec, renderOptions(cfg)),
	})
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	return pipe, cl, nil
}

func newJobStore(cfg *config.Config, logger zerolog.Logger) (jobs.Store, error) {
	if cfg.Jobs.Store == config.StoreSQLite {
		return jobs.NewSQLiteStore(cfg.Jobs.SQLitePath, logger)
	}
	return jobs.NewMemoryStore(), nil
}
