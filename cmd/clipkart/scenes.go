package main

import (
	"fmt"

	"github.com/keagan/clipkart/internal/ai"
	"github.com/keagan/clipkart/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	scenesOutput string
	scenesMotion bool
)

var scenesCmd = &cobra.Command{
	Use:   "scenes [input video]",
	Short: "Detect and annotate scenes",
	Long:  "Detects scene boundaries and annotations for a local video and stores them as JSON for 'clipkart select'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		src, cl, err := newSceneSource(ctx, cfg, exec)
		if err != nil {
			return err
		}
		defer cl.Close()

		res, err := src.Detect(ctx, args[0])
		if err != nil {
			return err
		}

		file := res.File(args[0])
		if scenesMotion || !res.Annotated() {
			motion, err := ai.MotionScores(ctx, log.Logger, exec, args[0], res.Boundaries)
			if err != nil {
				return fmt.Errorf("motion analysis failed: %w", err)
			}
			file.Motion = motion
		}

		if err := file.Save(scenesOutput); err != nil {
			return err
		}

		log.Info().
			Str("output", scenesOutput).
			Int("scenes", len(file.Boundaries)).
			Bool("annotated", res.Annotated()).
			Msg("scene set written")
		return nil
	},
}

func init() {
	scenesCmd.Flags().StringVarP(&scenesOutput, "output", "o", "scenes.json", "scene set file")
	scenesCmd.Flags().BoolVar(&scenesMotion, "motion", false, "also measure motion for annotated scenes")
}
