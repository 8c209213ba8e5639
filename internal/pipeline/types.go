package pipeline

import (
	"errors"
	"fmt"

	"github.com/keagan/clipkart/internal/scenes"
)

// Request describes one short to produce
type Request struct {
	Source         string  // local path or URL
	TargetDuration float64 // seconds
	Format         string  // mp4 or mkv
	OutputDir      string
	Captions       bool
}

// Result describes a finished short
type Result struct {
	OutputPath string
	Selected   []scenes.Selected
	Annotated  bool // false when scoring fell back to motion
	Duration   float64
}

// Progress checkpoints, in emission order
const (
	ProgressDownload = 5
	ProgressDetect   = 20
	ProgressAnalyze  = 30
	ProgressVertical = 40
	ProgressCaptions = 60
	ProgressExport   = 80
	ProgressCleanup  = 95
	ProgressComplete = 100
)

// Stage descriptions reported alongside each checkpoint
const (
	StageDownloading = "Downloading video"
	StageDetecting   = "Detecting scenes"
	StageAnalyzing   = "Analyzing scenes for interest"
	StageConverting  = "Converting to vertical format"
	StageCaptioning  = "Adding captions"
	StageExporting   = "Exporting final video"
	StageCleaningUp  = "Cleaning up temporary files"
	StageComplete    = "Complete"
)

// Stage names the part of a run that failed
type Stage string

const (
	StageSetup      Stage = "setup"
	StageDownload   Stage = "download"
	StageProcessing Stage = "processing"
)

// StageError attributes a run failure to a stage
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Marker is the human readable stage shown for a failed job
func (e *StageError) Marker() string {
	return fmt.Sprintf("Failed: %s error", e.Stage)
}

// FailureMarker returns the stage marker for err, or a generic one when
// err carries no stage.
func FailureMarker(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Marker()
	}
	return "Failed: unexpected error"
}

// ValidFormat reports whether format is a supported container
func ValidFormat(format string) bool {
	return format == "mp4" || format == "mkv"
}
