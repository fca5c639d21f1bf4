package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/learnquest-backend/internal/learning/gate"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/gcp"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
	"github.com/yungbote/learnquest-backend/internal/types"
)

type TranscriptService interface {
	// Words returns the stored transcription of a video, nil when none.
	Words(ctx context.Context, videoID string) ([]segment.TimedWord, error)
	// Transcribe runs speech transcription for a gs:// source and stores the
	// result. Concurrent calls for one video share a single run.
	Transcribe(ctx context.Context, videoID, sourceURI string) ([]segment.TimedWord, error)
	// SegmentTranscripts returns the gate hook that fills segment transcripts:
	// a synthesized outline first, then real words where they exist. With no
	// stored words and a gs:// source it starts a background transcription
	// for later sessions.
	SegmentTranscripts(ctx context.Context, videoID, title, sourceURI string) gate.TranscriptFunc
}

type TranscriptConfig struct {
	LanguageCode string
	Timeout      time.Duration
}

type transcriptService struct {
	log   *logger.Logger
	repo  repos.VideoTranscriptRepo
	video gcp.Video
	cfg   TranscriptConfig
	group singleflight.Group
}

// NewTranscriptService accepts a nil video client; transcription is then
// disabled and only stored words are used.
func NewTranscriptService(log *logger.Logger, repo repos.VideoTranscriptRepo, video gcp.Video, cfg TranscriptConfig) TranscriptService {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &transcriptService{
		log:   log.With("service", "TranscriptService"),
		repo:  repo,
		video: video,
		cfg:   cfg,
	}
}

func (s *transcriptService) Words(ctx context.Context, videoID string) ([]segment.TimedWord, error) {
	row, err := s.repo.GetByVideoID(ctx, nil, videoID)
	if err != nil || row == nil {
		return nil, err
	}
	return []segment.TimedWord(row.Words), nil
}

func (s *transcriptService) Transcribe(ctx context.Context, videoID, sourceURI string) ([]segment.TimedWord, error) {
	if s.video == nil {
		return nil, nil
	}
	if !strings.HasPrefix(sourceURI, "gs://") {
		return nil, nil
	}
	v, err, shared := s.group.Do(videoID, func() (any, error) {
		t, err := s.video.TranscribeGCS(ctx, sourceURI, gcp.SpeechConfig{
			LanguageCode:               s.cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
			Timeout:                    s.cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		if err := s.repo.Upsert(ctx, nil, &types.VideoTranscript{
			VideoID:      videoID,
			SourceURI:    sourceURI,
			Provider:     t.Provider,
			LanguageCode: t.LanguageCode,
			Words:        t.Words,
		}); err != nil {
			return nil, err
		}
		s.log.Info("Stored video transcript", "video_id", videoID, "words", len(t.Words))
		return t.Words, nil
	})
	if err != nil {
		s.log.Warn("Transcription failed", "video_id", videoID, "shared", shared, "error", err)
		return nil, err
	}
	words, _ := v.([]segment.TimedWord)
	return words, nil
}

func (s *transcriptService) SegmentTranscripts(ctx context.Context, videoID, title, sourceURI string) gate.TranscriptFunc {
	words, err := s.Words(ctx, videoID)
	if err != nil {
		s.log.Warn("Loading stored transcript failed", "video_id", videoID, "error", err)
	}
	if len(words) == 0 && s.video != nil && strings.HasPrefix(sourceURI, "gs://") {
		bg := ctxutil.Detached(ctx)
		go func() {
			_, _ = s.Transcribe(bg, videoID, sourceURI)
		}()
	}
	return func(segs []segment.Segment) {
		segment.SynthesizeTranscripts(title, segs)
		segment.SliceTranscript(words, segs)
	}
}
