package selection

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/stretchr/testify/require"
)

func scored(start, end, score float64) scenes.Scored {
	return scenes.Scored{Boundary: scenes.Boundary{Start: start, End: end}, Score: score}
}

func spans(sel []scenes.Selected) [][2]float64 {
	out := make([][2]float64, len(sel))
	for i, s := range sel {
		out[i] = [2]float64{s.Start, s.End}
	}
	return out
}

func TestSelectScenarioA(t *testing.T) {
	in := []scenes.Scored{
		scored(0, 2, 0.84),
		scored(2, 4, 0.35),
		scored(4, 20, 0.53),
	}

	got := Select(in, 5)
	require.Equal(t, [][2]float64{{0, 2}, {2, 4}}, spans(got))
}

func TestSelectDropsShortScenes(t *testing.T) {
	in := []scenes.Scored{
		scored(0, 0.5, 0.99),
		scored(0.5, 0.9, 0.98),
		scored(0.9, 3, 0.1),
	}

	got := Select(in, 10)
	require.Equal(t, [][2]float64{{0.9, 3}}, spans(got))
}

func TestSelectAllShortIsEmpty(t *testing.T) {
	in := []scenes.Scored{scored(0, 0.5, 1), scored(0.5, 0.9, 1)}
	require.Empty(t, Select(in, 10))
}

func TestSelectStopsOnceTargetReached(t *testing.T) {
	in := []scenes.Scored{
		scored(10, 15, 0.9),
		scored(0, 5, 0.8),
		scored(20, 21, 0.7), // would still fit the overshoot, never considered
	}

	got := Select(in, 10)
	require.Equal(t, [][2]float64{{0, 5}, {10, 15}}, spans(got))
}

func TestSelectAllowsTenPercentOvershoot(t *testing.T) {
	in := []scenes.Scored{scored(0, 8, 0.9), scored(8, 11, 0.8)}
	got := Select(in, 10)
	require.Len(t, got, 2) // 11 <= 11

	in = []scenes.Scored{scored(0, 8, 0.9), scored(8, 11.5, 0.8)}
	got = Select(in, 10)
	require.Equal(t, [][2]float64{{0, 8}}, spans(got))
}

func TestSelectTiesKeepBoundaryOrder(t *testing.T) {
	in := []scenes.Scored{
		scored(0, 4, 0.5),
		scored(4, 8, 0.5),
		scored(8, 12, 0.5),
	}

	// budget 4.4 fits exactly one scene; the first on ties wins
	got := Select(in, 4)
	require.Equal(t, [][2]float64{{0, 4}}, spans(got))
}

func TestSelectKeepsAnnotation(t *testing.T) {
	ann := &scenes.Annotation{Speech: "hey"}
	in := []scenes.Scored{{Boundary: scenes.Boundary{Start: 0, End: 3}, Score: 1, Annotation: ann}}

	got := Select(in, 3)
	require.Len(t, got, 1)
	require.Same(t, ann, got[0].Annotation)
	require.False(t, got[0].CaptionEnabled)
}

func TestSelectToleratesOverlap(t *testing.T) {
	in := []scenes.Scored{scored(0, 4, 0.2), scored(2, 6, 0.9)}
	got := Select(in, 8)
	require.Equal(t, [][2]float64{{0, 4}, {2, 6}}, spans(got))
}

func TestSelectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(20)
		in := make([]scenes.Scored, n)
		cursor := 0.0
		hasViable := false
		for i := range in {
			d := 0.2 + rng.Float64()*12
			in[i] = scored(cursor, cursor+d, rng.Float64())
			cursor += d
			if d >= MinSceneDuration {
				hasViable = true
			}
		}
		target := 1 + rng.Float64()*60

		got := Select(in, target)

		require.True(t, sort.SliceIsSorted(got, func(a, b int) bool { return got[a].Start < got[b].Start }))
		require.LessOrEqual(t, scenes.TotalDuration(got), target*OvershootFactor+1e-9)
		for _, s := range got {
			require.GreaterOrEqual(t, s.Duration(), MinSceneDuration)
		}

		// a viable scene that fits the budget on its own is always picked up
		fits := false
		for _, s := range in {
			if s.Duration() >= MinSceneDuration && s.Duration() <= target*OvershootFactor {
				fits = true
			}
		}
		if hasViable && fits {
			require.NotEmpty(t, got)
		}
	}
}
