package annotate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/keagan/clipkart/internal/scenes"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/durationpb"
)

// VideoIntelligenceOptions configures the Google Video Intelligence source
type VideoIntelligenceOptions struct {
	CredentialsFile string // empty = application default credentials
	LanguageCode    string
	DumpPath        string // optional JSON dump of per-scene annotations
}

// VideoIntelligence annotates videos with shot changes, labels, tracked
// objects and speech transcripts.
type VideoIntelligence struct {
	logger   zerolog.Logger
	client   *videointelligence.Client
	language string
	dumpPath string
}

// NewVideoIntelligence creates a client for the annotation service
func NewVideoIntelligence(ctx context.Context, logger zerolog.Logger, opts VideoIntelligenceOptions) (*VideoIntelligence, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := videointelligence.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create video intelligence client: %w", err)
	}

	language := opts.LanguageCode
	if language == "" {
		language = "en-US"
	}

	return &VideoIntelligence{
		logger:   logger.With().Str("component", "videointelligence").Logger(),
		client:   client,
		language: language,
		dumpPath: opts.DumpPath,
	}, nil
}

// Detect uploads the video and waits for the annotation operation. The
// caller bounds the wait through ctx.
func (v *VideoIntelligence) Detect(ctx context.Context, video string) (Result, error) {
	content, err := os.ReadFile(video)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read video: %w", err)
	}

	v.logger.Info().
		Str("video", video).
		Int("bytes", len(content)).
		Msg("sending video for annotation")

	op, err := v.client.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputContent: content,
		Features: []videointelligencepb.Feature{
			videointelligencepb.Feature_SHOT_CHANGE_DETECTION,
			videointelligencepb.Feature_LABEL_DETECTION,
			videointelligencepb.Feature_OBJECT_TRACKING,
			videointelligencepb.Feature_SPEECH_TRANSCRIPTION,
		},
		VideoContext: &videointelligencepb.VideoContext{
			SpeechTranscriptionConfig: &videointelligencepb.SpeechTranscriptionConfig{
				LanguageCode:               v.language,
				EnableAutomaticPunctuation: true,
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("annotate request failed: %w", err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("annotation operation failed: %w", err)
	}
	if len(resp.GetAnnotationResults()) == 0 {
		return Result{}, errors.New("annotation returned no results")
	}

	res := fromAnnotationResults(resp.GetAnnotationResults()[0])
	v.logger.Info().Int("scenes", len(res.Boundaries)).Msg("annotation complete")

	if v.dumpPath != "" {
		if err := res.File(video).Save(v.dumpPath); err != nil {
			v.logger.Warn().Err(err).Str("path", v.dumpPath).Msg("failed to write annotation dump")
		}
	}

	return res, nil
}

// Close releases the underlying client connection
func (v *VideoIntelligence) Close() error {
	return v.client.Close()
}

// fromAnnotationResults maps service output onto shots. Labels attach when
// their segment overlaps the shot, objects when any tracked frame falls in
// it, and speech is the first transcript with a word starting in it.
func fromAnnotationResults(r *videointelligencepb.VideoAnnotationResults) Result {
	shots := r.GetShotAnnotations()
	res := Result{
		Boundaries:  make([]scenes.Boundary, 0, len(shots)),
		Annotations: make([]scenes.Annotation, 0, len(shots)),
	}

	for _, shot := range shots {
		b := scenes.Boundary{
			Start: seconds(shot.GetStartTimeOffset()),
			End:   seconds(shot.GetEndTimeOffset()),
		}
		if !b.Valid() {
			continue
		}

		res.Boundaries = append(res.Boundaries, b)
		res.Annotations = append(res.Annotations, scenes.Annotation{
			Labels:  labelsIn(r.GetSegmentLabelAnnotations(), b),
			Objects: objectsIn(r.GetObjectAnnotations(), b),
			Speech:  speechIn(r.GetSpeechTranscriptions(), b),
		})
	}

	return res
}

func labelsIn(labels []*videointelligencepb.LabelAnnotation, b scenes.Boundary) []scenes.Detection {
	var out []scenes.Detection
	for _, label := range labels {
		for _, seg := range label.GetSegments() {
			start := seconds(seg.GetSegment().GetStartTimeOffset())
			end := seconds(seg.GetSegment().GetEndTimeOffset())
			if start <= b.End && end >= b.Start {
				out = append(out, scenes.Detection{
					Description: label.GetEntity().GetDescription(),
					Confidence:  float64(seg.GetConfidence()),
				})
			}
		}
	}
	return out
}

func objectsIn(objects []*videointelligencepb.ObjectTrackingAnnotation, b scenes.Boundary) []scenes.Detection {
	var out []scenes.Detection
	seen := make(map[string]bool)
	for _, obj := range objects {
		desc := obj.GetEntity().GetDescription()
		if seen[desc] {
			continue
		}
		for _, frame := range obj.GetFrames() {
			t := seconds(frame.GetTimeOffset())
			if t >= b.Start && t <= b.End {
				seen[desc] = true
				out = append(out, scenes.Detection{
					Description: desc,
					Confidence:  float64(obj.GetConfidence()),
				})
				break
			}
		}
	}
	return out
}

func speechIn(transcripts []*videointelligencepb.SpeechTranscription, b scenes.Boundary) string {
	for _, tr := range transcripts {
		for _, alt := range tr.GetAlternatives() {
			for _, word := range alt.GetWords() {
				t := seconds(word.GetStartTime())
				if t >= b.Start && t <= b.End {
					return strings.TrimSpace(alt.GetTranscript())
				}
			}
		}
	}
	return ""
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
