package selection

import (
	"sort"

	"github.com/keagan/clipkart/internal/scenes"
)

// Fixed selection policy.
const (
	// MinSceneDuration drops scenes too short to be useful content.
	MinSceneDuration = 1.0
	// OvershootFactor lets the accumulated duration exceed the target by 10%.
	OvershootFactor = 1.1
)

// Select packs the highest scoring scenes into target seconds and returns
// them in chronological order. Captions are left disabled.
func Select(scored []scenes.Scored, target float64) []scenes.Selected {
	ranked := make([]int, len(scored))
	for i := range ranked {
		ranked[i] = i
	}
	// Stable so equal scores keep boundary order
	sort.SliceStable(ranked, func(a, b int) bool {
		return scored[ranked[a]].Score > scored[ranked[b]].Score
	})

	budget := target * OvershootFactor
	accumulated := 0.0
	selected := make([]scenes.Selected, 0)

	for _, idx := range ranked {
		s := scored[idx]
		d := s.Duration()
		if d < MinSceneDuration {
			continue
		}
		if accumulated+d > budget {
			continue
		}

		selected = append(selected, scenes.Selected{
			Start:      s.Start,
			End:        s.End,
			Annotation: s.Annotation,
		})
		accumulated += d

		if accumulated >= target {
			break
		}
	}

	sort.SliceStable(selected, func(a, b int) bool {
		return selected[a].Start < selected[b].Start
	})

	return selected
}
