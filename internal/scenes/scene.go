package scenes

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// Boundary is a contiguous [Start, End) span of the source video, in seconds.
type Boundary struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the span length in seconds.
func (b Boundary) Duration() float64 {
	return b.End - b.Start
}

// Valid reports whether the boundary is finite and End > Start.
func (b Boundary) Valid() bool {
	if math.IsNaN(b.Start) || math.IsNaN(b.End) || math.IsInf(b.Start, 0) || math.IsInf(b.End, 0) {
		return false
	}
	return b.End > b.Start
}

// StartTime converts Start to a time.Duration for ffmpeg.
func (b Boundary) StartTime() time.Duration {
	return time.Duration(b.Start * float64(time.Second))
}

// EndTime converts End to a time.Duration for ffmpeg.
func (b Boundary) EndTime() time.Duration {
	return time.Duration(b.End * float64(time.Second))
}

// Detection is a single label or tracked object reported for a scene
type Detection struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Annotation holds the semantic signals attached to one scene
type Annotation struct {
	Labels  []Detection `json:"labels"`
	Objects []Detection `json:"objects"`
	Speech  string      `json:"speech"`
}

// Scored is a boundary with its interest score. Produced once, never mutated.
type Scored struct {
	Boundary
	Score      float64     `json:"score"`
	Annotation *Annotation `json:"annotation,omitempty"`
}

// Selected is a scene chosen for the final short, in playback order
type Selected struct {
	Start          float64     `json:"start"`
	End            float64     `json:"end"`
	Annotation     *Annotation `json:"annotation,omitempty"`
	CaptionEnabled bool        `json:"caption_enabled"`
}

// Boundary returns the time span of the selected scene.
func (s Selected) Boundary() Boundary {
	return Boundary{Start: s.Start, End: s.End}
}

// Duration returns the selected scene length in seconds.
func (s Selected) Duration() float64 {
	return s.End - s.Start
}

// TotalDuration sums the durations of the selected scenes.
func TotalDuration(selected []Selected) float64 {
	total := 0.0
	for _, s := range selected {
		total += s.Duration()
	}
	return total
}

// File is the on-disk JSON form of a detected scene set. Annotations and
// Motion are optional; when Annotations is present it must align with
// Boundaries index for index.
type File struct {
	Video       string       `json:"video,omitempty"`
	Boundaries  []Boundary   `json:"boundaries"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Motion      []float64    `json:"motion,omitempty"`
}

// LoadFile reads a scene set from a JSON file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scene file %s: %w", path, err)
	}

	return &f, nil
}

// Save writes the scene set as indented JSON
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
