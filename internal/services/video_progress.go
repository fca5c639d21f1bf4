package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
	"github.com/yungbote/learnquest-backend/internal/types"
)

// VideoProgressService persists what a learner has passed in each video so a
// later session can resume.
type VideoProgressService interface {
	// Load returns nil when the learner never opened the video.
	Load(ctx context.Context, userID uuid.UUID, videoID string) (*types.VideoProgress, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.VideoProgress, error)
	MarkOpened(ctx context.Context, userID uuid.UUID, videoID, title string) error
	SetTotalSegments(ctx context.Context, userID uuid.UUID, videoID string, total int) error
	RecordSegmentCompleted(ctx context.Context, userID uuid.UUID, videoID string, index int) error
	RecordCourseCompleted(ctx context.Context, userID uuid.UUID, videoID string) error
	AddWatchSeconds(ctx context.Context, userID uuid.UUID, videoID string, seconds int) error
}

type videoProgressService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.VideoProgressRepo
	now  func() time.Time
}

func NewVideoProgressService(db *gorm.DB, log *logger.Logger, repo repos.VideoProgressRepo) VideoProgressService {
	return &videoProgressService{
		db:   db,
		log:  log.With("service", "VideoProgressService"),
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *videoProgressService) Load(ctx context.Context, userID uuid.UUID, videoID string) (*types.VideoProgress, error) {
	row, err := s.repo.Get(ctx, nil, userID, videoID)
	if err != nil {
		return nil, fmt.Errorf("load video progress: %w", err)
	}
	return row, nil
}

func (s *videoProgressService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.VideoProgress, error) {
	rows, err := s.repo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list video progress: %w", err)
	}
	return rows, nil
}

func (s *videoProgressService) MarkOpened(ctx context.Context, userID uuid.UUID, videoID, title string) error {
	return s.update(ctx, userID, videoID, "MarkOpened", func(row *types.VideoProgress) {
		now := s.now()
		row.LastOpenedAt = &now
		if title != "" {
			row.Title = title
		}
	})
}

func (s *videoProgressService) SetTotalSegments(ctx context.Context, userID uuid.UUID, videoID string, total int) error {
	if total <= 0 {
		return nil
	}
	return s.update(ctx, userID, videoID, "SetTotalSegments", func(row *types.VideoProgress) {
		row.TotalSegments = total
	})
}

func (s *videoProgressService) RecordSegmentCompleted(ctx context.Context, userID uuid.UUID, videoID string, index int) error {
	if index < 0 {
		return fmt.Errorf("invalid segment index %d", index)
	}
	return s.update(ctx, userID, videoID, "RecordSegmentCompleted", func(row *types.VideoProgress) {
		if row.HasSegment(index) {
			return
		}
		row.CompletedSegments = append(row.CompletedSegments, index)
		sort.Ints(row.CompletedSegments)
	})
}

func (s *videoProgressService) RecordCourseCompleted(ctx context.Context, userID uuid.UUID, videoID string) error {
	return s.update(ctx, userID, videoID, "RecordCourseCompleted", func(row *types.VideoProgress) {
		if row.CourseCompleted {
			return
		}
		now := s.now()
		row.CourseCompleted = true
		row.CompletedAt = &now
	})
}

func (s *videoProgressService) AddWatchSeconds(ctx context.Context, userID uuid.UUID, videoID string, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	return s.update(ctx, userID, videoID, "AddWatchSeconds", func(row *types.VideoProgress) {
		row.WatchSeconds += seconds
	})
}

func (s *videoProgressService) update(ctx context.Context, userID uuid.UUID, videoID, op string, apply func(row *types.VideoProgress)) error {
	if userID == uuid.Nil || videoID == "" {
		return fmt.Errorf("%s: user id and video id required", op)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.repo.GetOrCreateForUpdate(ctx, tx, userID, videoID)
		if err != nil {
			return err
		}
		apply(row)
		return s.repo.Save(ctx, tx, row)
	})
	if err != nil {
		s.log.Warn(op+" failed", "user_id", userID, "video_id", videoID, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
