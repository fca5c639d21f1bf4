package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
)

// SegmentQuiz pins the question a video segment was first given so every
// later session sees the same one.
type SegmentQuiz struct {
	ID           uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID      string                            `gorm:"column:video_id;not null;index:idx_segment_quiz_video_segment,unique" json:"video_id"`
	SegmentIndex int                               `gorm:"column:segment_index;not null;index:idx_segment_quiz_video_segment,unique" json:"segment_index"`
	Question     datatypes.JSONType[quiz.Question] `gorm:"column:question;not null" json:"question"`
	Source       string                            `gorm:"column:source;not null" json:"source"`
	Topic        string                            `gorm:"column:topic" json:"topic,omitempty"`
	CreatedAt    time.Time                         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SegmentQuiz) TableName() string { return "segment_quiz" }

func (q *SegmentQuiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
