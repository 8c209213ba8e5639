package api

import "github.com/keagan/clipkart/internal/jobs"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ProcessResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

type StatusResponse struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStage string `json:"current_stage"`
	FilePath     string `json:"file_path,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JobToStatus exposes the fields that matter for the job's state: output
// locations once completed, the error once failed.
func JobToStatus(j jobs.Job) StatusResponse {
	resp := StatusResponse{
		Success:      true,
		Status:       string(j.Status),
		Progress:     j.Progress,
		CurrentStage: j.Stage,
	}
	switch j.Status {
	case jobs.StatusCompleted:
		resp.FilePath = j.FilePath
		resp.DownloadURL = j.DownloadURL
	case jobs.StatusFailed:
		resp.Error = j.Error
	}
	return resp
}

type JobsResponse struct {
	Success bool       `json:"success"`
	Jobs    []jobs.Job `json:"jobs"`
}
