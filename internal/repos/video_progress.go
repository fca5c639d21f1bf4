package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/types"
)

type VideoProgressRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, videoID string) (*types.VideoProgress, error)
	GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, videoID string) (*types.VideoProgress, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.VideoProgress, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.VideoProgress) error
}

type videoProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoProgressRepo(db *gorm.DB, baseLog *logger.Logger) VideoProgressRepo {
	repoLog := baseLog.With("repo", "VideoProgressRepo")
	return &videoProgressRepo{db: db, log: repoLog}
}

func (r *videoProgressRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, videoID string) (*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || videoID == "" {
		return nil, nil
	}

	var row types.VideoProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *videoProgressRepo) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, videoID string) (*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || videoID == "" {
		return nil, errors.New("user id and video id required")
	}

	seed := &types.VideoProgress{UserID: userID, VideoID: videoID, CompletedSegments: []int{}}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(seed).Error; err != nil {
		return nil, err
	}

	var row types.VideoProgress
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *videoProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoProgress
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.VideoProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
