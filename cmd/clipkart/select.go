package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/keagan/clipkart/internal/ai"
	"github.com/keagan/clipkart/internal/config"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/keagan/clipkart/internal/selection"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	selectTarget   float64
	selectCaptions bool
	selectOutput   string
)

var selectCmd = &cobra.Command{
	Use:   "select [scenes.json]",
	Short: "Select scenes from a stored scene set",
	Long:  "Scores a scene set written by 'clipkart scenes' and prints the scenes that fit the target duration, in playback order.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		file, err := scenes.LoadFile(args[0])
		if err != nil {
			return err
		}

		mode, err := ai.ModeFor(file)
		if err != nil {
			return err
		}

		target := cfg.Selection.TargetDuration
		if cmd.Flags().Changed("target") {
			target = selectTarget
		}
		captions := cfg.Selection.Captions
		if cmd.Flags().Changed("captions") {
			captions = selectCaptions
		}

		engine := selection.NewEngine(log.Logger, nil)
		selected, err := engine.Run(selection.Request{
			Boundaries:       file.Boundaries,
			Mode:             mode,
			TargetDuration:   target,
			CaptionRequested: captions,
		})
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(selected, "", "  ")
		if err != nil {
			return err
		}

		if selectOutput != "" {
			return os.WriteFile(selectOutput, data, 0644)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	selectCmd.Flags().Float64VarP(&selectTarget, "target", "t", 60, "target duration in seconds")
	selectCmd.Flags().BoolVar(&selectCaptions, "captions", true, "enable captions for scenes with speech")
	selectCmd.Flags().StringVarP(&selectOutput, "output", "o", "", "write the selection to a file instead of stdout")
}
