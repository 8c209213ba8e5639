package ai

import (
	"strings"

	"github.com/keagan/clipkart/internal/scenes"
)

// KeywordBoost multiplies the confidence of a detection whose description
// matches the interesting vocabulary.
const KeywordBoost = 1.5

// Vocabulary lists the terms that mark a label or object as interesting.
// Matching is a case-insensitive substring test.
type Vocabulary struct {
	Labels  []string
	Objects []string
}

// DefaultVocabulary returns the built-in interesting terms
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Labels: []string{
			"action", "dance", "amazing", "awesome", "beautiful",
			"exciting", "funny", "happy", "interesting", "dramatic",
			"emotional", "shocking", "surprising", "highlight", "event",
			"sports", "game", "music", "performance", "speech",
		},
		Objects: []string{
			"person", "people", "face", "dog", "cat", "animal",
			"car", "vehicle", "food", "ball", "sports equipment",
			"musical instrument",
		},
	}
}

// Features is the uniform per-scene record the scorer consumes
type Features struct {
	Duration             float64
	BestLabelConfidence  float64 // post-boost, may exceed 1.0
	BestObjectConfidence float64 // post-boost, may exceed 1.0
	HasSpeech            bool
}

// Normalize converts a boundary and its annotation into Features.
// A nil annotation yields zero confidences and no speech.
func Normalize(b scenes.Boundary, a *scenes.Annotation, vocab Vocabulary) Features {
	f := Features{Duration: b.Duration()}
	if a == nil {
		return f
	}

	f.BestLabelConfidence = bestConfidence(a.Labels, vocab.Labels)
	f.BestObjectConfidence = bestConfidence(a.Objects, vocab.Objects)
	f.HasSpeech = a.Speech != ""
	return f
}

// bestConfidence returns the maximum boosted confidence, 0 for no items
func bestConfidence(items []scenes.Detection, terms []string) float64 {
	best := 0.0
	for _, item := range items {
		conf := item.Confidence
		if matchesAny(item.Description, terms) {
			conf *= KeywordBoost
		}
		if conf > best {
			best = conf
		}
	}
	return best
}

func matchesAny(description string, terms []string) bool {
	desc := strings.ToLower(description)
	for _, term := range terms {
		if term != "" && strings.Contains(desc, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
