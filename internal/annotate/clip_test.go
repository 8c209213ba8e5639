package annotate

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRankPrompts(t *testing.T) {
	prompts := []Prompt{
		{Label: "dog", Embedding: []float32{1, 0, 0}},
		{Label: "cat", Embedding: []float32{0, 1, 0}},
		{Label: "car", Embedding: []float32{0, 0, 1}},
	}

	dets := rankPrompts([]float32{0.9, 0.1, 0}, prompts, 2, 0)
	require.Len(t, dets, 2)
	require.Equal(t, "dog", dets[0].Description)
	require.Equal(t, "cat", dets[1].Description)
	require.Greater(t, dets[0].Confidence, 0.99)

	var total float64
	for _, d := range rankPrompts([]float32{0.5, 0.5, 0.5}, prompts, 3, 0) {
		total += d.Confidence
	}
	require.InDelta(t, 1.0, total, 1e-9)

	require.Len(t, rankPrompts([]float32{0.5, 0.5, 0.5}, prompts, 3, 0.5), 0)
	require.Nil(t, rankPrompts([]float32{1}, nil, 3, 0))
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	require.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	data := preprocess(img)
	plane := clipInputSize * clipInputSize
	require.Len(t, data, 3*plane)
	require.InDelta(t, (1-clipMean[0])/clipStd[0], data[0], 0.02)
	require.InDelta(t, (0-clipMean[1])/clipStd[1], data[plane], 0.02)
	require.InDelta(t, (0-clipMean[2])/clipStd[2], data[2*plane+plane-1], 0.02)
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	prompts, err := LoadPrompts(write("ok.json", `[{"label":"dog","embedding":[1,0]},{"label":"cat","embedding":[0,1]}]`))
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	_, err = LoadPrompts(write("empty.json", `[]`))
	require.Error(t, err)

	_, err = LoadPrompts(write("ragged.json", `[{"label":"dog","embedding":[1,0]},{"label":"cat","embedding":[1]}]`))
	require.Error(t, err)

	_, err = LoadPrompts(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

type stubGrabber struct {
	err   error
	times []float64
}

func (g *stubGrabber) Keyframe(ctx context.Context, video string, at float64) (image.Image, error) {
	g.times = append(g.times, at)
	if g.err != nil {
		return nil, g.err
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

type stubLabeler struct{}

func (stubLabeler) Label(img image.Image) ([]scenes.Detection, error) {
	return []scenes.Detection{{Description: "dance", Confidence: 0.8}}, nil
}

func TestLabeledAnnotatesMidpoints(t *testing.T) {
	grabber := &stubGrabber{}
	l := NewLabeled(zerolog.Nop(), staticSource(localResult, nil), grabber, stubLabeler{})

	res, err := l.Detect(context.Background(), "in.mp4")
	require.NoError(t, err)
	require.True(t, res.Annotated())
	require.Len(t, res.Annotations, 2)
	require.Equal(t, "dance", res.Annotations[1].Labels[0].Description)
	require.Equal(t, []float64{1, 3}, grabber.times)
}

func TestLabeledKeepsAnnotatedResults(t *testing.T) {
	grabber := &stubGrabber{}
	l := NewLabeled(zerolog.Nop(), staticSource(cloudResult, nil), grabber, stubLabeler{})

	res, err := l.Detect(context.Background(), "in.mp4")
	require.NoError(t, err)
	require.Equal(t, cloudResult, res)
	require.Empty(t, grabber.times)
}

func TestLabeledFailureLeavesResultUnannotated(t *testing.T) {
	l := NewLabeled(zerolog.Nop(), staticSource(localResult, nil), &stubGrabber{err: errors.New("seek failed")}, stubLabeler{})

	res, err := l.Detect(context.Background(), "in.mp4")
	require.NoError(t, err)
	require.False(t, res.Annotated())
	require.Equal(t, localResult.Boundaries, res.Boundaries)
}
