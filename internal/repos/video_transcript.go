package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/types"
)

type VideoTranscriptRepo interface {
	GetByVideoID(ctx context.Context, tx *gorm.DB, videoID string) (*types.VideoTranscript, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.VideoTranscript) error
}

type videoTranscriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) VideoTranscriptRepo {
	repoLog := baseLog.With("repo", "VideoTranscriptRepo")
	return &videoTranscriptRepo{db: db, log: repoLog}
}

func (r *videoTranscriptRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID string) (*types.VideoTranscript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if videoID == "" {
		return nil, nil
	}

	var row types.VideoTranscript
	err := transaction.WithContext(ctx).Where("video_id = ?", videoID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *videoTranscriptRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.VideoTranscript) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.VideoID == "" {
		return errors.New("transcript requires a video id")
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"source_uri", "provider", "language_code", "words", "updated_at"}),
		}).
		Create(row).Error
}
