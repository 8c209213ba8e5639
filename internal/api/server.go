// Package api serves the HTTP surface for submitting shorts and polling
// their progress.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/keagan/clipkart/internal/jobs"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/rs/zerolog"
)

// Jobs is the part of the job manager the handlers use
type Jobs interface {
	Submit(ctx context.Context, req pipeline.Request) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, error)
	List(ctx context.Context) ([]jobs.Job, error)
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

type ServerConfig struct {
	Addr             string
	Jobs             Jobs
	DefaultOutputDir string // used when a request leaves output_path empty
	DefaultTarget    float64
	Logger           zerolog.Logger
	StartTime        time.Time
	Version          string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Downloads stream whole videos
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
