package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/types"
)

type SegmentQuizRepo interface {
	Get(ctx context.Context, tx *gorm.DB, videoID string, segmentIndex int) (*types.SegmentQuiz, error)
	// CreateIfAbsent inserts row unless a quiz already exists for the same
	// segment, and returns whichever row is stored.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.SegmentQuiz) (*types.SegmentQuiz, error)
	ListByVideoID(ctx context.Context, tx *gorm.DB, videoID string) ([]*types.SegmentQuiz, error)
}

type segmentQuizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentQuizRepo(db *gorm.DB, baseLog *logger.Logger) SegmentQuizRepo {
	repoLog := baseLog.With("repo", "SegmentQuizRepo")
	return &segmentQuizRepo{db: db, log: repoLog}
}

func (r *segmentQuizRepo) Get(ctx context.Context, tx *gorm.DB, videoID string, segmentIndex int) (*types.SegmentQuiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if videoID == "" {
		return nil, nil
	}

	var row types.SegmentQuiz
	err := transaction.WithContext(ctx).
		Where("video_id = ? AND segment_index = ?", videoID, segmentIndex).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *segmentQuizRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.SegmentQuiz) (*types.SegmentQuiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.VideoID == "" {
		return nil, errors.New("segment quiz requires a video id")
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "segment_index"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, transaction, row.VideoID, row.SegmentIndex)
}

func (r *segmentQuizRepo) ListByVideoID(ctx context.Context, tx *gorm.DB, videoID string) ([]*types.SegmentQuiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SegmentQuiz
	if videoID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("segment_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
