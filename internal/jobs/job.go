// Package jobs tracks background short-production jobs.
package jobs

import (
	"context"
	"errors"
	"time"
)

// Status is a job's lifecycle state
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned for unknown job IDs
var ErrNotFound = errors.New("job not found")

// Job is the status record a poller sees
type Job struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	Progress       int       `json:"progress"`
	Stage          string    `json:"current_stage"`
	Error          string    `json:"error,omitempty"`
	FilePath       string    `json:"file_path,omitempty"`
	DownloadURL    string    `json:"download_url,omitempty"`
	URL            string    `json:"url"`
	Format         string    `json:"format"`
	TargetDuration float64   `json:"duration"`
	Captions       bool      `json:"captions"`
	OutputDir      string    `json:"output_dir"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store persists job records. Get returns a copy; callers never share a
// record with the store.
type Store interface {
	Put(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	List(ctx context.Context) ([]Job, error)
	Close() error
}
