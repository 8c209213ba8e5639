package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/clipkart/internal/config"
	"github.com/keagan/clipkart/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clipkart",
	Short:   "ClipKart - turn long videos into vertical shorts",
	Long:    "ClipKart finds the most interesting scenes of a video, fits them into a target length and renders a 9:16 short.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonLogs})

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON")

	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
