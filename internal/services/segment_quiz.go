package services

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/learnquest-backend/internal/learning/gate"
	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
	"github.com/yungbote/learnquest-backend/internal/types"
)

// SegmentQuizService pins one question per (video, segment). The first
// session to reach a segment resolves it; every later session reads it back.
type SegmentQuizService interface {
	ForVideo(videoID string) gate.QuizSource
}

type segmentQuizService struct {
	log      *logger.Logger
	repo     repos.SegmentQuizRepo
	resolver *quiz.Resolver
}

func NewSegmentQuizService(log *logger.Logger, repo repos.SegmentQuizRepo, resolver *quiz.Resolver) SegmentQuizService {
	return &segmentQuizService{
		log:      log.With("service", "SegmentQuizService"),
		repo:     repo,
		resolver: resolver,
	}
}

func (s *segmentQuizService) ForVideo(videoID string) gate.QuizSource {
	return &videoQuizSource{svc: s, videoID: videoID}
}

type videoQuizSource struct {
	svc     *segmentQuizService
	videoID string
}

func (v *videoQuizSource) SegmentQuiz(ctx context.Context, seg segment.Segment) quiz.Question {
	s := v.svc
	if s.repo != nil && v.videoID != "" {
		row, err := s.repo.Get(ctx, nil, v.videoID, seg.Index)
		if err != nil {
			s.log.Warn("Stored quiz lookup failed", "video_id", v.videoID, "segment", seg.Index, "error", err)
		} else if row != nil {
			q := row.Question.Data()
			if q.Validate() == nil {
				return q
			}
			s.log.Warn("Stored quiz invalid, resolving again", "video_id", v.videoID, "segment", seg.Index, "question", q.Question)
		}
	}

	started := time.Now()
	res := s.resolver.ResolveResult(ctx, seg.Transcript)
	observability.Current().ObserveQuizResolution(string(res.Source), time.Since(started))
	if s.repo == nil || v.videoID == "" || ctx.Err() != nil {
		return res.Question
	}

	stored, err := s.repo.CreateIfAbsent(ctx, nil, &types.SegmentQuiz{
		VideoID:      v.videoID,
		SegmentIndex: seg.Index,
		Question:     datatypes.NewJSONType(res.Question),
		Source:       string(res.Source),
		Topic:        res.Topic,
	})
	if err != nil {
		s.log.Warn("Storing segment quiz failed", "video_id", v.videoID, "segment", seg.Index, "error", err)
		return res.Question
	}
	if stored != nil {
		if q := stored.Question.Data(); q.Validate() == nil {
			return q
		}
	}
	return res.Question
}
