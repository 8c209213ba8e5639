package annotate

import (
	"math"
	"testing"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/stretchr/testify/require"
)

func TestFromCuts(t *testing.T) {
	tests := []struct {
		name     string
		cuts     []float64
		duration float64
		want     []scenes.Boundary
	}{
		{
			name:     "no cuts is one scene",
			duration: 10,
			want:     []scenes.Boundary{{Start: 0, End: 10}},
		},
		{
			name:     "unsorted cuts",
			cuts:     []float64{7, 3},
			duration: 10,
			want:     []scenes.Boundary{{Start: 0, End: 3}, {Start: 3, End: 7}, {Start: 7, End: 10}},
		},
		{
			name:     "cuts outside the video are ignored",
			cuts:     []float64{0, -1, 4, 10, 12},
			duration: 10,
			want:     []scenes.Boundary{{Start: 0, End: 4}, {Start: 4, End: 10}},
		},
		{
			name:     "near duplicate cuts merge",
			cuts:     []float64{4, 4.01, 4.02},
			duration: 10,
			want:     []scenes.Boundary{{Start: 0, End: 4}, {Start: 4, End: 10}},
		},
		{
			name:     "zero duration",
			cuts:     []float64{1},
			duration: 0,
			want:     nil,
		},
		{
			name:     "NaN duration",
			duration: math.NaN(),
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromCuts(tt.cuts, tt.duration))
		})
	}
}

func TestResultValidate(t *testing.T) {
	bs := []scenes.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}}

	require.NoError(t, Result{Boundaries: bs}.Validate())
	require.NoError(t, Result{Boundaries: bs, Annotations: make([]scenes.Annotation, 2)}.Validate())
	require.Error(t, Result{Boundaries: bs, Annotations: make([]scenes.Annotation, 1)}.Validate())

	require.False(t, Result{Boundaries: bs}.Annotated())
	require.True(t, Result{Boundaries: bs, Annotations: []scenes.Annotation{}}.Annotated())
}

func TestResultFile(t *testing.T) {
	res := Result{
		Boundaries:  []scenes.Boundary{{Start: 0, End: 2}},
		Annotations: []scenes.Annotation{{Speech: "hi"}},
	}
	f := res.File("in.mp4")

	require.Equal(t, "in.mp4", f.Video)
	require.Equal(t, res.Boundaries, f.Boundaries)
	require.Equal(t, res.Annotations, f.Annotations)
}
