package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keagan/clipkart/internal/jobs"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu        sync.Mutex
	submitted []pipeline.Request
	jobs      map[string]jobs.Job
	submitErr error
}

func newFakeJobs(list ...jobs.Job) *fakeJobs {
	f := &fakeJobs{jobs: make(map[string]jobs.Job)}
	for _, j := range list {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeJobs) Submit(ctx context.Context, req pipeline.Request) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return jobs.Job{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	job := jobs.Job{ID: "job-1", Status: jobs.StatusProcessing, Stage: "Starting download"}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) Get(ctx context.Context, id string) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return jobs.Job{}, jobs.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobs) List(ctx context.Context) ([]jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]jobs.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func testRouter(t *testing.T, j Jobs) (http.Handler, string) {
	t.Helper()
	out := t.TempDir()
	return NewRouter(ServerConfig{
		Jobs:             j,
		DefaultOutputDir: out,
		Logger:           zerolog.Nop(),
		StartTime:        time.Now(),
		Version:          "test",
	}), out
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	h, _ := testRouter(t, newFakeJobs())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	body := decodeJSONBody(t, rr)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["version"])
}

func TestProcess(t *testing.T) {
	fj := newFakeJobs()
	h, defaultOut := testRouter(t, fj)
	custom := filepath.Join(t.TempDir(), "shorts")

	tests := []struct {
		name string
		form url.Values
		want pipeline.Request
	}{
		{
			name: "all fields",
			form: url.Values{"url": {"https://youtu.be/abc"}, "duration": {"45"}, "format": {"mkv"}, "output_path": {custom}, "captions": {"false"}},
			want: pipeline.Request{Source: "https://youtu.be/abc", TargetDuration: 45, Format: "mkv", OutputDir: custom, Captions: false},
		},
		{
			name: "defaults",
			form: url.Values{"url": {"https://example.com/v.mp4"}},
			want: pipeline.Request{Source: "https://example.com/v.mp4", TargetDuration: 60, Format: "mp4", OutputDir: defaultOut, Captions: true},
		},
		{
			name: "invalid duration",
			form: url.Values{"url": {"https://example.com/v.mp4"}, "duration": {"abc"}, "captions": {"TRUE"}},
			want: pipeline.Request{Source: "https://example.com/v.mp4", TargetDuration: 60, Format: "mp4", OutputDir: defaultOut, Captions: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fj.submitted = nil
			rr := postForm(t, h, tt.form)

			require.Equal(t, http.StatusOK, rr.Code)
			body := decodeJSONBody(t, rr)
			require.Equal(t, true, body["success"])
			require.Equal(t, "job-1", body["task_id"])

			require.Len(t, fj.submitted, 1)
			require.Equal(t, tt.want, fj.submitted[0])
			require.DirExists(t, tt.want.OutputDir)
		})
	}
}

func TestProcessRejects(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		status int
		errMsg string
	}{
		{"missing url", url.Values{"format": {"mp4"}}, http.StatusBadRequest, "No URL provided"},
		{"bad format", url.Values{"url": {"https://youtu.be/abc"}, "format": {"avi"}}, http.StatusBadRequest, "Invalid format: avi"},
		{"local path", url.Values{"url": {"/etc/hostname"}}, http.StatusBadRequest, "Invalid URL"},
		{"file scheme", url.Values{"url": {"file:///etc/hostname"}}, http.StatusBadRequest, "Invalid URL"},
		{"no host", url.Values{"url": {"https:///watch"}}, http.StatusBadRequest, "Invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fj := newFakeJobs()
			h, _ := testRouter(t, fj)

			rr := postForm(t, h, tt.form)
			require.Equal(t, tt.status, rr.Code)
			body := decodeJSONBody(t, rr)
			require.Equal(t, false, body["success"])
			require.Equal(t, tt.errMsg, body["error"])
			require.Empty(t, fj.submitted)
		})
	}
}

func TestProcessAfterClose(t *testing.T) {
	fj := newFakeJobs()
	fj.submitErr = jobs.ErrClosed
	h, _ := testRouter(t, fj)

	rr := postForm(t, h, url.Values{"url": {"https://youtu.be/abc"}})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStatus(t *testing.T) {
	fj := newFakeJobs(
		jobs.Job{ID: "running", Status: jobs.StatusProcessing, Progress: 30, Stage: pipeline.StageAnalyzing},
		jobs.Job{ID: "done", Status: jobs.StatusCompleted, Progress: 100, Stage: "Completed",
			FilePath: "/out/short_1.mp4", DownloadURL: "/download/short_1.mp4"},
		jobs.Job{ID: "broken", Status: jobs.StatusFailed, Progress: 5, Stage: "Failed: download error",
			Error: "invalid URL", FilePath: "ignored"},
	)
	h, _ := testRouter(t, fj)

	get := func(id string) (int, map[string]any) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status/"+id, nil))
		return rr.Code, decodeJSONBody(t, rr)
	}

	code, body := get("running")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "processing", body["status"])
	require.EqualValues(t, 30, body["progress"])
	require.Equal(t, pipeline.StageAnalyzing, body["current_stage"])
	require.NotContains(t, body, "file_path")
	require.NotContains(t, body, "error")

	code, body = get("done")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "/out/short_1.mp4", body["file_path"])
	require.Equal(t, "/download/short_1.mp4", body["download_url"])

	code, body = get("broken")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "failed", body["status"])
	require.Equal(t, "invalid URL", body["error"])
	require.NotContains(t, body, "file_path")

	code, body = get("nope")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Task not found", body["error"])
}

func TestDownload(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "short_a.mp4"), []byte("job output"), 0644))

	fj := newFakeJobs(jobs.Job{ID: "a", Status: jobs.StatusCompleted, FilePath: filepath.Join(jobDir, "short_a.mp4")})
	h, defaultOut := testRouter(t, fj)
	require.NoError(t, os.WriteFile(filepath.Join(defaultOut, "short_b.mp4"), []byte("default output"), 0644))

	get := func(name string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/download/"+name, nil))
		return rr
	}

	rr := get("short_a.mp4")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "job output", rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	rr = get("short_b.mp4")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "default output", rr.Body.String())

	rr = get("missing.mp4")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = get("..")
	require.NotEqual(t, http.StatusOK, rr.Code)
}

func TestParseDuration(t *testing.T) {
	require.Equal(t, 30.0, parseDuration("30", 60))
	require.Equal(t, 60.0, parseDuration("", 60))
	require.Equal(t, 60.0, parseDuration("12.5", 60))
	require.Equal(t, 60.0, parseDuration("-5", 60))
	require.Equal(t, 60.0, parseDuration("x", 0))
	require.Equal(t, 90.0, parseDuration("x", 90))
}
