package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"github.com/keagan/clipkart/internal/scenes"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	clipInputSize  = 224
	clipLogitScale = 100.0
)

var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// Prompt is a text label with its precomputed CLIP text embedding
type Prompt struct {
	Label     string    `json:"label"`
	Embedding []float32 `json:"embedding"`
}

// CLIPOptions configures the zero-shot labeler
type CLIPOptions struct {
	ModelPath     string // vision encoder exported to ONNX, output image_embeds
	PromptsPath   string // JSON array of Prompt
	LibraryPath   string // onnxruntime shared library; empty = platform default
	TopK          int
	MinConfidence float64
}

// CLIPLabeler labels images by comparing their CLIP embedding against a
// fixed set of prompt embeddings.
type CLIPLabeler struct {
	logger        zerolog.Logger
	session       *ort.DynamicAdvancedSession
	prompts       []Prompt
	topK          int
	minConfidence float64
}

// NewCLIPLabeler loads the vision model and prompt embeddings
func NewCLIPLabeler(logger zerolog.Logger, opts CLIPOptions) (*CLIPLabeler, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}

	prompts, err := LoadPrompts(opts.PromptsPath)
	if err != nil {
		return nil, err
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputNames := []string{"pixel_values"}
	outputNames := []string{"image_embeds"}

	sess, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, outputNames, nil)
	if err != nil {
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create CLIP session: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}

	logger.Info().
		Str("model", opts.ModelPath).
		Int("prompts", len(prompts)).
		Msg("CLIP model loaded")

	return &CLIPLabeler{
		logger:        logger.With().Str("component", "clip").Logger(),
		session:       sess,
		prompts:       prompts,
		topK:          topK,
		minConfidence: opts.MinConfidence,
	}, nil
}

// LoadPrompts reads prompt embeddings and checks they share a dimension
func LoadPrompts(path string) ([]Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	var prompts []Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts %s: %w", path, err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompts file %s is empty", path)
	}

	dim := len(prompts[0].Embedding)
	for _, p := range prompts {
		if dim == 0 || len(p.Embedding) != dim {
			return nil, fmt.Errorf("prompt %q has embedding size %d, want %d", p.Label, len(p.Embedding), dim)
		}
	}
	return prompts, nil
}

// Label runs the vision encoder on img and returns the best matching prompts
func (c *CLIPLabeler) Label(img image.Image) ([]scenes.Detection, error) {
	pixels, err := ort.NewTensor(ort.NewShape(1, 3, clipInputSize, clipInputSize), preprocess(img))
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel tensor: %w", err)
	}
	defer pixels.Destroy()

	dim := int64(len(c.prompts[0].Embedding))
	embeds, err := ort.NewEmptyTensor[float32](ort.NewShape(1, dim))
	if err != nil {
		return nil, fmt.Errorf("failed to create image_embeds tensor: %w", err)
	}
	defer embeds.Destroy()

	if err := c.session.Run([]ort.Value{pixels}, []ort.Value{embeds}); err != nil {
		return nil, fmt.Errorf("CLIP inference failed: %w", err)
	}

	dets := rankPrompts(embeds.GetData(), c.prompts, c.topK, c.minConfidence)
	c.logger.Debug().Int("labels", len(dets)).Msg("CLIP labeling complete")
	return dets, nil
}

// Close releases the session and ONNX environment
func (c *CLIPLabeler) Close() error {
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			return err
		}
	}
	return ort.DestroyEnvironment()
}

// preprocess converts img to CLIP pixel_values, CHW with CLIP normalization
func preprocess(img image.Image) []float32 {
	resized := resize.Resize(clipInputSize, clipInputSize, img, resize.Bilinear)
	bounds := resized.Bounds()
	plane := clipInputSize * clipInputSize
	data := make([]float32, 3*plane)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			for ch, v := range [3]uint32{r, g, b} {
				f := float32(v>>8) / 255.0
				data[ch*plane+i] = (f - clipMean[ch]) / clipStd[ch]
			}
			i++
		}
	}
	return data
}

// rankPrompts scores prompts by scaled cosine similarity, softmaxes them and
// keeps the topK with probability at least minConfidence.
func rankPrompts(embed []float32, prompts []Prompt, topK int, minConfidence float64) []scenes.Detection {
	if len(prompts) == 0 {
		return nil
	}

	logits := make([]float64, len(prompts))
	maxLogit := math.Inf(-1)
	for i, p := range prompts {
		logits[i] = clipLogitScale * cosine(embed, p.Embedding)
		maxLogit = math.Max(maxLogit, logits[i])
	}

	var sum float64
	for i := range logits {
		logits[i] = math.Exp(logits[i] - maxLogit)
		sum += logits[i]
	}

	dets := make([]scenes.Detection, len(prompts))
	for i, p := range prompts {
		dets[i] = scenes.Detection{Description: p.Label, Confidence: logits[i] / sum}
	}
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	out := make([]scenes.Detection, 0, topK)
	for _, d := range dets {
		if len(out) == topK || d.Confidence < minConfidence {
			break
		}
		out = append(out, d)
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ImageLabeler labels a single frame
type ImageLabeler interface {
	Label(img image.Image) ([]scenes.Detection, error)
}

// KeyframeGrabber decodes one frame of a video
type KeyframeGrabber interface {
	Keyframe(ctx context.Context, video string, at float64) (image.Image, error)
}

// Labeled annotates an unannotated source by labeling each scene's
// midpoint frame. Any labeling failure leaves the result unannotated.
type Labeled struct {
	logger  zerolog.Logger
	source  Source
	grabber KeyframeGrabber
	labeler ImageLabeler
}

// NewLabeled wraps source with keyframe labeling
func NewLabeled(logger zerolog.Logger, source Source, grabber KeyframeGrabber, labeler ImageLabeler) *Labeled {
	return &Labeled{
		logger:  logger.With().Str("component", "annotate-clip").Logger(),
		source:  source,
		grabber: grabber,
		labeler: labeler,
	}
}

func (l *Labeled) Detect(ctx context.Context, video string) (Result, error) {
	res, err := l.source.Detect(ctx, video)
	if err != nil || res.Annotated() {
		return res, err
	}

	annotations := make([]scenes.Annotation, len(res.Boundaries))
	for i, b := range res.Boundaries {
		img, err := l.grabber.Keyframe(ctx, video, b.Start+b.Duration()/2)
		if err == nil {
			annotations[i].Labels, err = l.labeler.Label(img)
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			l.logger.Warn().Err(err).Int("scene", i).Msg("keyframe labeling failed, continuing without annotations")
			return res, nil
		}
	}

	res.Annotations = annotations
	return res, nil
}
