package main

import (
	"context"
	"errors"
	"time"

	"github.com/keagan/clipkart/internal/api"
	"github.com/keagan/clipkart/internal/config"
	"github.com/keagan/clipkart/internal/jobs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long serve waits for running jobs on exit
const shutdownTimeout = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}

		pipe, cl, err := newPipeline(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer cl.Close()

		store, err := newJobStore(cfg, log.Logger)
		if err != nil {
			return err
		}
		defer store.Close()

		manager := jobs.NewManager(log.Logger, store, pipe)

		server := api.NewServer(api.ServerConfig{
			Addr:             cfg.Server.Addr,
			Jobs:             manager,
			DefaultOutputDir: cfg.OutputDir,
			DefaultTarget:    cfg.Selection.TargetDuration,
			Logger:           log.Logger,
			StartTime:        time.Now(),
			Version:          version,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err = <-errCh:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if serr := server.Shutdown(shutdownCtx); serr != nil {
			log.Warn().Err(serr).Msg("server shutdown failed")
		}
		if merr := manager.Close(shutdownCtx); merr != nil {
			log.Warn().Err(merr).Msg("jobs still running at shutdown")
		}

		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
