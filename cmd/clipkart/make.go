package main

import (
	"github.com/keagan/clipkart/internal/config"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	makeTarget    float64
	makeFormat    string
	makeOutputDir string
	makeCaptions  bool
)

var makeCmd = &cobra.Command{
	Use:   "make [url or path]",
	Short: "Produce a short from a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()

		req := pipeline.Request{
			Source:         args[0],
			TargetDuration: cfg.Selection.TargetDuration,
			Format:         cfg.Render.Format,
			OutputDir:      cfg.OutputDir,
			Captions:       cfg.Selection.Captions,
		}
		if cmd.Flags().Changed("target") {
			req.TargetDuration = pipeline.NormalizeTarget(makeTarget)
		}
		if cmd.Flags().Changed("format") {
			req.Format = makeFormat
		}
		if cmd.Flags().Changed("output-dir") {
			req.OutputDir = makeOutputDir
		}
		if cmd.Flags().Changed("captions") {
			req.Captions = makeCaptions
		}

		pipe, cl, err := newPipeline(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer cl.Close()

		obs := pipeline.ObserverFunc(func(percent int, stage string) {
			log.Info().Int("progress", percent).Str("stage", stage).Msg("progress")
		})

		res, err := pipe.Run(ctx, req, obs)
		if err != nil {
			log.Error().Err(err).Str("stage", pipeline.FailureMarker(err)).Msg("short failed")
			return err
		}

		log.Info().
			Str("output", res.OutputPath).
			Int("scenes", len(res.Selected)).
			Float64("duration", res.Duration).
			Msg("short ready")
		return nil
	},
}

func init() {
	makeCmd.Flags().Float64VarP(&makeTarget, "target", "t", 60, "target duration in seconds")
	makeCmd.Flags().StringVarP(&makeFormat, "format", "f", "mp4", "output container (mp4|mkv)")
	makeCmd.Flags().StringVarP(&makeOutputDir, "output-dir", "o", "./output", "output directory")
	makeCmd.Flags().BoolVar(&makeCaptions, "captions", true, "burn in captions for scenes with speech")
}
