package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("job manager is closed")

// Runner produces a short for one request
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, obs pipeline.Observer) (*pipeline.Result, error)
}

// Manager starts one worker goroutine per submitted job. Each worker is the
// only writer of its job's record.
type Manager struct {
	logger zerolog.Logger
	store  Store
	runner Runner
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a manager that records jobs in store
func NewManager(logger zerolog.Logger, store Store, runner Runner) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "jobs").Logger(),
		store:  store,
		runner: runner,
		now:    time.Now,
	}
}

// Submit records a new job and starts processing it in the background
func (m *Manager) Submit(ctx context.Context, req pipeline.Request) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Job{}, ErrClosed
	}

	now := m.now()
	job := Job{
		ID:             uuid.NewString(),
		Status:         StatusProcessing,
		Stage:          "Starting download",
		URL:            req.Source,
		Format:         req.Format,
		TargetDuration: req.TargetDuration,
		Captions:       req.Captions,
		OutputDir:      req.OutputDir,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Put(ctx, job); err != nil {
		return Job{}, fmt.Errorf("failed to record job: %w", err)
	}

	m.logger.Info().
		Str("job", job.ID).
		Str("url", req.Source).
		Float64("duration", req.TargetDuration).
		Str("format", req.Format).
		Bool("captions", req.Captions).
		Msg("job submitted")

	m.wg.Add(1)
	go m.work(job, req)

	return job, nil
}

// Get returns a snapshot of a job
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	return m.store.Get(ctx, id)
}

// List returns snapshots of all jobs, newest first
func (m *Manager) List(ctx context.Context) ([]Job, error) {
	return m.store.List(ctx)
}

// Close refuses new jobs and waits for running ones to finish or ctx to end
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) work(job Job, req pipeline.Request) {
	defer m.wg.Done()

	logger := m.logger.With().Str("job", job.ID).Logger()

	// Jobs outlive the request that submitted them
	ctx := context.Background()

	obs := pipeline.ObserverFunc(func(percent int, stage string) {
		job.Progress = percent
		job.Stage = stage
		m.save(ctx, logger, job)
		logger.Info().Int("progress", percent).Str("stage", stage).Msg("job progress")
	})

	res, err := m.run(ctx, req, obs)
	if err != nil {
		job.Status = StatusFailed
		job.Stage = pipeline.FailureMarker(err)
		job.Error = failureMessage(err)
		m.save(ctx, logger, job)
		logger.Error().Err(err).Str("stage", job.Stage).Msg("job failed")
		return
	}

	job.Status = StatusCompleted
	job.Progress = 100
	job.Stage = "Completed"
	job.FilePath = res.OutputPath
	job.DownloadURL = "/download/" + filepath.Base(res.OutputPath)
	m.save(ctx, logger, job)

	logger.Info().Str("output", res.OutputPath).Msg("job completed")
}

// run converts a runner panic into a job failure
func (m *Manager) run(ctx context.Context, req pipeline.Request, obs pipeline.Observer) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.runner.Run(ctx, req, obs)
}

func (m *Manager) save(ctx context.Context, logger zerolog.Logger, job Job) {
	job.UpdatedAt = m.now()
	if err := m.store.Put(ctx, job); err != nil {
		logger.Error().Err(err).Msg("failed to save job status")
	}
}

// failureMessage mirrors the stage: download failures report the cause as
// is, everything else is a processing error.
func failureMessage(err error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case pipeline.StageDownload, pipeline.StageSetup:
			return se.Err.Error()
		default:
			return "Processing error: " + se.Err.Error()
		}
	}
	return err.Error()
}
