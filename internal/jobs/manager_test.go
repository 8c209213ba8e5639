package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/keagan/clipkart/internal/source"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	release chan struct{}
	result  *pipeline.Result
	err     error
	panics  bool
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request, obs pipeline.Observer) (*pipeline.Result, error) {
	obs.OnProgress(pipeline.ProgressDownload, pipeline.StageDownloading)
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("renderer exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	obs.OnProgress(pipeline.ProgressComplete, pipeline.StageComplete)
	return f.result, nil
}

func waitForJob(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(context.Background(), id)
		return err == nil && job.Status != StatusProcessing
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

var testRequest = pipeline.Request{
	Source:         "https://youtu.be/abc",
	TargetDuration: 30,
	Format:         "mp4",
	OutputDir:      "/tmp/out",
	Captions:       true,
}

func TestManagerCompletesJob(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), result: &pipeline.Result{OutputPath: "/tmp/out/short_20240101-000000.mp4"}}
	m := NewManager(zerolog.Nop(), NewMemoryStore(), runner)

	job, err := m.Submit(context.Background(), testRequest)
	require.NoError(t, err)
	_, err = uuid.Parse(job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, job.Status)
	require.Equal(t, 30.0, job.TargetDuration)

	// the worker is parked after the first checkpoint
	require.Eventually(t, func() bool {
		j, err := m.Get(context.Background(), job.ID)
		return err == nil && j.Progress == pipeline.ProgressDownload
	}, 5*time.Second, 5*time.Millisecond)

	close(runner.release)
	done := waitForJob(t, m, job.ID)

	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, 100, done.Progress)
	require.Equal(t, "Completed", done.Stage)
	require.Equal(t, "/tmp/out/short_20240101-000000.mp4", done.FilePath)
	require.Equal(t, "/download/short_20240101-000000.mp4", done.DownloadURL)
	require.Empty(t, done.Error)
}

func TestManagerFailures(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		stage  string
		errMsg string
	}{
		{
			name:   "download",
			runner: &fakeRunner{err: &pipeline.StageError{Stage: pipeline.StageDownload, Err: source.ErrInvalidURL}},
			stage:  "Failed: download error",
			errMsg: "invalid URL",
		},
		{
			name:   "processing",
			runner: &fakeRunner{err: &pipeline.StageError{Stage: pipeline.StageProcessing, Err: errors.New("render failed")}},
			stage:  "Failed: processing error",
			errMsg: "Processing error: render failed",
		},
		{
			name:   "panic",
			runner: &fakeRunner{panics: true},
			stage:  "Failed: unexpected error",
			errMsg: "panic: renderer exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(zerolog.Nop(), NewMemoryStore(), tt.runner)
			job, err := m.Submit(context.Background(), testRequest)
			require.NoError(t, err)

			done := waitForJob(t, m, job.ID)
			require.Equal(t, StatusFailed, done.Status)
			require.Equal(t, tt.stage, done.Stage)
			require.Equal(t, tt.errMsg, done.Error)
			require.Equal(t, pipeline.ProgressDownload, done.Progress)
		})
	}
}

func TestManagerClose(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), result: &pipeline.Result{OutputPath: "/tmp/x.mp4"}}
	m := NewManager(zerolog.Nop(), NewMemoryStore(), runner)

	job, err := m.Submit(context.Background(), testRequest)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Close(ctx), context.DeadlineExceeded)

	_, err = m.Submit(context.Background(), testRequest)
	require.ErrorIs(t, err, ErrClosed)

	close(runner.release)
	require.NoError(t, m.Close(context.Background()))

	got, err := m.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
}

func TestManagerConcurrentJobs(t *testing.T) {
	m := NewManager(zerolog.Nop(), NewMemoryStore(), &fakeRunner{result: &pipeline.Result{OutputPath: "/tmp/x.mp4"}})

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := m.Submit(context.Background(), testRequest)
			if err == nil {
				ids <- job.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	require.NoError(t, m.Close(context.Background()))

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
		got, err := m.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusCompleted, got.Status)
	}
	require.Len(t, seen, 20)

	list, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 20)
}
