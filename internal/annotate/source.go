// Package annotate produces scene boundaries for a video, optionally with
// semantic annotations (labels, tracked objects, speech) per scene.
package annotate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/keagan/clipkart/internal/scenes"
)

// Source detects scene boundaries and, when it can, annotates them.
type Source interface {
	Detect(ctx context.Context, video string) (Result, error)
}

// Result holds detected scenes. Annotations is nil when the source could
// not annotate; otherwise it is index aligned with Boundaries.
type Result struct {
	Boundaries  []scenes.Boundary
	Annotations []scenes.Annotation
}

// Annotated reports whether the result carries semantic annotations
func (r Result) Annotated() bool {
	return r.Annotations != nil
}

// Validate checks that annotations, when present, align with boundaries
func (r Result) Validate() error {
	if r.Annotations != nil && len(r.Annotations) != len(r.Boundaries) {
		return fmt.Errorf("annotation count %d does not match %d boundaries",
			len(r.Annotations), len(r.Boundaries))
	}
	return nil
}

// File converts the result into a serializable scene file
func (r Result) File(video string) *scenes.File {
	return &scenes.File{
		Video:       video,
		Boundaries:  r.Boundaries,
		Annotations: r.Annotations,
	}
}

// minSceneGap merges cuts closer together than this many seconds
const minSceneGap = 0.05

// FromCuts turns scene-change timestamps into contiguous boundaries that
// cover [0, duration]. Cuts outside the video are ignored.
func FromCuts(cuts []float64, duration float64) []scenes.Boundary {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}

	sorted := make([]float64, 0, len(cuts))
	for _, c := range cuts {
		if c > minSceneGap && c < duration-minSceneGap {
			sorted = append(sorted, c)
		}
	}
	sort.Float64s(sorted)

	var out []scenes.Boundary
	prev := 0.0
	for _, c := range sorted {
		if c-prev < minSceneGap {
			continue
		}
		out = append(out, scenes.Boundary{Start: prev, End: c})
		prev = c
	}
	out = append(out, scenes.Boundary{Start: prev, End: duration})
	return out
}
