package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

const ProviderVideoIntelligence = "gcp_videointelligence"

// Video transcribes the speech track of a video stored in GCS.
type Video interface {
	TranscribeGCS(ctx context.Context, gcsURI string, cfg SpeechConfig) (*Transcription, error)
	Close() error
}

type SpeechConfig struct {
	LanguageCode               string
	EnableAutomaticPunctuation bool
	// Timeout bounds the long-running operation; default 30m.
	Timeout time.Duration
}

type Transcription struct {
	Provider     string              `json:"provider"`
	SourceURI    string              `json:"source_uri"`
	LanguageCode string              `json:"language_code"`
	Words        []segment.TimedWord `json:"words"`
}

// Text joins all words in time order.
func (t *Transcription) Text() string {
	parts := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		parts = append(parts, w.Word)
	}
	return strings.Join(parts, " ")
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries uint
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := videointelligence.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{
		log:        log.With("service", "VideoIntelligence"),
		client:     c,
		maxRetries: 4,
	}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) TranscribeGCS(ctx context.Context, gcsURI string, cfg SpeechConfig) (*Transcription, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               cfg.LanguageCode,
				EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
				EnableWordConfidence:       true,
			},
		},
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 750 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	resp, err := backoff.Retry(ctx, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err == nil {
			var out *vipb.AnnotateVideoResponse
			if out, err = op.Wait(ctx); err == nil {
				return out, nil
			}
		}
		if !retryableCode(status.Code(err)) {
			return nil, backoff.Permanent(err)
		}
		s.log.Warn("AnnotateVideo retrying", "uri", gcsURI, "error", err)
		return nil, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxRetries+1))
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}

	out := &Transcription{Provider: ProviderVideoIntelligence, SourceURI: gcsURI, LanguageCode: cfg.LanguageCode}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		s.log.Warn("No annotation results", "uri", gcsURI)
		return out, nil
	}
	out.Words = wordsFromSpeech(resp.AnnotationResults[0].SpeechTranscriptions)
	return out, nil
}

func retryableCode(c codes.Code) bool {
	return c == codes.Unavailable || c == codes.ResourceExhausted || c == codes.DeadlineExceeded
}

// wordsFromSpeech flattens the top alternative of every transcription into
// time-ordered words.
func wordsFromSpeech(st []*vipb.SpeechTranscription) []segment.TimedWord {
	var out []segment.TimedWord
	for _, tr := range st {
		if tr == nil || len(tr.Alternatives) == 0 || tr.Alternatives[0] == nil {
			continue
		}
		for _, w := range tr.Alternatives[0].Words {
			if w == nil || strings.TrimSpace(w.Word) == "" {
				continue
			}
			out = append(out, segment.TimedWord{
				Word:  strings.TrimSpace(w.Word),
				Start: durToSec(w.StartTime),
				End:   durToSec(w.EndTime),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}
