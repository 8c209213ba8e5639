package ai

import (
	"fmt"

	"github.com/keagan/clipkart/internal/scenes"
)

// Weights for the annotated formula. They sum to 1.0.
const (
	baseScore = 0.5

	weightBase     = 0.1
	weightDuration = 0.2
	weightLabel    = 0.3
	weightObject   = 0.3
	weightSpeech   = 0.1

	weightMotion         = 0.7
	weightMotionDuration = 0.3

	speechPresent = 1.0
	speechAbsent  = 0.5
)

// Mode selects the scoring formula for a whole run. It is either
// Annotated or MotionOnly.
type Mode interface {
	isMode()
	// Len is the number of per-scene entries the mode carries.
	Len() int
}

// Annotated scores scenes from semantic annotations, one per boundary
type Annotated struct {
	Annotations []scenes.Annotation
}

func (Annotated) isMode()    {}
func (m Annotated) Len() int { return len(m.Annotations) }

// MotionOnly scores scenes from motion estimates, one per boundary.
// Used when the annotation source was unavailable for the run.
type MotionOnly struct {
	Motion []float64
}

func (MotionOnly) isMode()    {}
func (m MotionOnly) Len() int { return len(m.Motion) }

// ModeFor picks the scoring mode a stored scene set supports. Annotations
// win over motion scores.
func ModeFor(f *scenes.File) (Mode, error) {
	switch {
	case f.Annotations != nil:
		return Annotated{Annotations: f.Annotations}, nil
	case f.Motion != nil:
		return MotionOnly{Motion: f.Motion}, nil
	default:
		return nil, fmt.Errorf("scene set has neither annotations nor motion scores")
	}
}

// DurationScore rates how well a scene length suits a short
func DurationScore(d float64) float64 {
	switch {
	case d < 1.0:
		return 0.3
	case d < 3.0:
		return 0.7
	case d > 15.0:
		return 0.6
	default:
		return 1.0
	}
}

// AnnotatedScore applies the annotated formula to one feature record.
// Boosted confidences are not clamped, so the result may exceed 1.0.
func AnnotatedScore(f Features) float64 {
	speech := speechAbsent
	if f.HasSpeech {
		speech = speechPresent
	}

	return weightBase*baseScore +
		weightDuration*DurationScore(f.Duration) +
		weightLabel*f.BestLabelConfidence +
		weightObject*f.BestObjectConfidence +
		weightSpeech*speech
}

// MotionScore applies the fallback formula
func MotionScore(motion, duration float64) float64 {
	return weightMotion*motion + weightMotionDuration*DurationScore(duration)
}

// Scorer combines normalized features into one interest score per scene
type Scorer struct {
	vocab Vocabulary
}

// NewScorer creates a scorer using the given keyword vocabulary
func NewScorer(vocab Vocabulary) *Scorer {
	return &Scorer{vocab: vocab}
}

// Score returns one Scored per boundary, index aligned with bs. It holds no
// state between calls.
func (s *Scorer) Score(bs []scenes.Boundary, mode Mode) ([]scenes.Scored, error) {
	if mode == nil {
		return nil, fmt.Errorf("scoring mode is required")
	}
	if mode.Len() != len(bs) {
		return nil, fmt.Errorf("mode carries %d entries for %d boundaries", mode.Len(), len(bs))
	}

	scored := make([]scenes.Scored, len(bs))

	switch m := mode.(type) {
	case Annotated:
		for i, b := range bs {
			ann := m.Annotations[i]
			f := Normalize(b, &ann, s.vocab)
			scored[i] = scenes.Scored{
				Boundary:   b,
				Score:      AnnotatedScore(f),
				Annotation: &ann,
			}
		}
	case MotionOnly:
		for i, b := range bs {
			scored[i] = scenes.Scored{
				Boundary: b,
				Score:    MotionScore(m.Motion[i], b.Duration()),
			}
		}
	default:
		return nil, fmt.Errorf("unsupported scoring mode %T", mode)
	}

	return scored, nil
}
