package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/keagan/clipkart/internal/jobs"
	"github.com/keagan/clipkart/internal/pipeline"
	"github.com/keagan/clipkart/pkg/util"
)

// DefaultOutputDir receives shorts when neither the request nor the server
// names a directory
const DefaultOutputDir = "output"

func NewRouter(cfg ServerConfig) *chi.Mux {
	logger := cfg.Logger.With().Str("component", "api").Logger()
	if cfg.DefaultOutputDir == "" {
		cfg.DefaultOutputDir = DefaultOutputDir
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/process", processHandler(cfg))
	r.Get("/status/{id}", statusHandler(cfg))
	r.Get("/jobs", listJobsHandler(cfg))
	r.Get("/download/{filename}", downloadHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	logger := cfg.Logger.With().Str("component", "api").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid form data")
			return
		}

		ref := strings.TrimSpace(r.PostForm.Get("url"))
		if ref == "" {
			WriteError(w, http.StatusBadRequest, "No URL provided")
			return
		}
		if !remoteURL(ref) {
			WriteError(w, http.StatusBadRequest, "Invalid URL")
			return
		}

		format := r.PostForm.Get("format")
		if format == "" {
			format = "mp4"
		}
		if !pipeline.ValidFormat(format) {
			WriteError(w, http.StatusBadRequest, "Invalid format: "+format)
			return
		}

		target := parseDuration(r.PostForm.Get("duration"), cfg.DefaultTarget)
		captions := parseCaptions(r.PostForm.Get("captions"))

		outputDir, err := sanitizeOutputDir(r.PostForm.Get("output_path"), cfg.DefaultOutputDir)
		if err != nil {
			logger.Error().Err(err).Msg("output path validation failed")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		job, err := cfg.Jobs.Submit(r.Context(), pipeline.Request{
			Source:         ref,
			TargetDuration: target,
			Format:         format,
			OutputDir:      outputDir,
			Captions:       captions,
		})
		if err != nil {
			if errors.Is(err, jobs.ErrClosed) {
				WriteError(w, http.StatusServiceUnavailable, "server is shutting down")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, ProcessResponse{Success: true, TaskID: job.ID})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, jobs.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, JobToStatus(job))
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Jobs.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		if list == nil {
			list = []jobs.Job{}
		}
		WriteJSON(w, http.StatusOK, JobsResponse{Success: true, Jobs: list})
	}
}

func downloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")

		dir := cfg.DefaultOutputDir
		if list, err := cfg.Jobs.List(r.Context()); err == nil {
			for _, j := range list {
				if j.FilePath != "" && filepath.Base(j.FilePath) == filename {
					dir = filepath.Dir(j.FilePath)
					break
				}
			}
		}

		path, err := util.SafeJoin(dir, filename)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid filename")
			return
		}
		if !util.FileExists(path) {
			WriteError(w, http.StatusNotFound, "File not found")
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		http.ServeFile(w, r, path)
	}
}

// parseDuration accepts whole seconds; anything else, including
// non-positive values, falls back to def (or 60).
// remoteURL reports whether ref is an absolute http(s) URL with a host
func remoteURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseDuration(s string, def float64) float64 {
	if def <= 0 {
		def = 60
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return float64(n)
}

func parseCaptions(s string) bool {
	if s == "" {
		return true
	}
	return strings.EqualFold(s, "true")
}

// sanitizeOutputDir makes dir absolute and creates it
func sanitizeOutputDir(dir, def string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = def
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot use the specified path: %w", err)
	}
	if err := util.EnsureDir(abs); err != nil {
		return "", fmt.Errorf("cannot use the specified path: %w", err)
	}
	return abs, nil
}
