package selection

import (
	"math"
	"testing"

	"github.com/keagan/clipkart/internal/ai"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(zerolog.Nop(), ai.NewScorer(ai.DefaultVocabulary()))
}

func TestRunScenarioA(t *testing.T) {
	got, err := newTestEngine().Run(Request{
		Boundaries:       []scenes.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}, {Start: 4, End: 20}},
		Mode:             ai.MotionOnly{Motion: []float64{0.9, 0.2, 0.5}},
		TargetDuration:   5,
		CaptionRequested: true,
	})
	require.NoError(t, err)
	require.Equal(t, [][2]float64{{0, 2}, {2, 4}}, spans(got))
	for _, s := range got {
		require.False(t, s.CaptionEnabled, "motion-only runs never carry captions")
		require.Nil(t, s.Annotation)
	}
}

func TestRunScenarioB(t *testing.T) {
	_, err := newTestEngine().Run(Request{
		Boundaries:     []scenes.Boundary{{Start: 0, End: 0.5}, {Start: 0.5, End: 1.2}, {Start: 1.2, End: 2}},
		Mode:           ai.MotionOnly{Motion: []float64{1, 1, 1}},
		TargetDuration: 30,
	})
	require.ErrorIs(t, err, ErrNoViableScenes)
}

func TestRunScenarioC(t *testing.T) {
	bs := []scenes.Boundary{{Start: 0, End: 4}, {Start: 4, End: 8}, {Start: 8, End: 12}}
	anns := []scenes.Annotation{
		{Labels: []scenes.Detection{{Description: "dance", Confidence: 0.9}}},
		{Objects: []scenes.Detection{{Description: "person", Confidence: 0.8}}, Speech: "welcome back everyone"},
		{Labels: []scenes.Detection{{Description: "sky", Confidence: 0.4}}},
	}

	got, err := newTestEngine().Run(Request{
		Boundaries:       bs,
		Mode:             ai.Annotated{Annotations: anns},
		TargetDuration:   12,
		CaptionRequested: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	for _, s := range got {
		require.Equal(t, s.Start == 4, s.CaptionEnabled, "scene at %v", s.Start)
	}
}

func TestRunCaptionsNotRequested(t *testing.T) {
	anns := []scenes.Annotation{{Speech: "one"}, {Speech: "two"}}
	got, err := newTestEngine().Run(Request{
		Boundaries:       []scenes.Boundary{{Start: 0, End: 3}, {Start: 3, End: 6}},
		Mode:             ai.Annotated{Annotations: anns},
		TargetDuration:   6,
		CaptionRequested: false,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, s := range got {
		require.False(t, s.CaptionEnabled)
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	valid := []scenes.Boundary{{Start: 0, End: 2}}
	motion := ai.MotionOnly{Motion: []float64{0.5}}

	cases := map[string]Request{
		"empty boundaries":   {Mode: ai.MotionOnly{}, TargetDuration: 10},
		"zero target":        {Boundaries: valid, Mode: motion, TargetDuration: 0},
		"negative target":    {Boundaries: valid, Mode: motion, TargetDuration: -5},
		"nan target":         {Boundaries: valid, Mode: motion, TargetDuration: math.NaN()},
		"reversed boundary":  {Boundaries: []scenes.Boundary{{Start: 3, End: 1}}, Mode: motion, TargetDuration: 10},
		"missing mode":       {Boundaries: valid, TargetDuration: 10},
		"annotation too few": {Boundaries: valid, Mode: ai.Annotated{}, TargetDuration: 10},
		"motion too many":    {Boundaries: valid, Mode: ai.MotionOnly{Motion: []float64{1, 2}}, TargetDuration: 10},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestEngine().Run(req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	bs := []scenes.Boundary{{Start: 5, End: 9}, {Start: 0, End: 4}}
	anns := []scenes.Annotation{{Speech: "late"}, {Speech: "early"}}

	_, err := newTestEngine().Run(Request{
		Boundaries:       bs,
		Mode:             ai.Annotated{Annotations: anns},
		TargetDuration:   8,
		CaptionRequested: true,
	})
	require.NoError(t, err)
	require.Equal(t, []scenes.Boundary{{Start: 5, End: 9}, {Start: 0, End: 4}}, bs)
	require.Equal(t, "late", anns[0].Speech)
}
