package selection

import "github.com/keagan/clipkart/internal/scenes"

// ResolveCaptions flags the scenes that get speech captions. A scene is
// captioned only when captions were requested for the run and the scene
// carries non-empty speech.
func ResolveCaptions(selected []scenes.Selected, requested bool) []scenes.Selected {
	out := make([]scenes.Selected, len(selected))
	for i, s := range selected {
		s.CaptionEnabled = requested &&
			s.Annotation != nil &&
			s.Annotation.Speech != ""
		out[i] = s
	}
	return out
}
