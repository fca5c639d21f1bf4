package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VideoProgress is the durable part of a viewing session: which segments a
// learner has passed and how long they watched.
type VideoProgress struct {
	ID                uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID                `gorm:"type:uuid;not null;index:idx_video_progress_user_video,unique" json:"user_id"`
	VideoID           string                   `gorm:"column:video_id;not null;index:idx_video_progress_user_video,unique" json:"video_id"`
	Title             string                   `gorm:"column:title" json:"title"`
	CompletedSegments datatypes.JSONSlice[int] `gorm:"column:completed_segments" json:"completed_segments"`
	TotalSegments     int                      `gorm:"column:total_segments;not null;default:0" json:"total_segments"`
	WatchSeconds      int                      `gorm:"column:watch_seconds;not null;default:0" json:"watch_seconds"`
	CourseCompleted   bool                     `gorm:"column:course_completed;not null;default:false" json:"course_completed"`
	CompletedAt       *time.Time               `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastOpenedAt      *time.Time               `gorm:"column:last_opened_at" json:"last_opened_at,omitempty"`
	CreatedAt         time.Time                `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (VideoProgress) TableName() string { return "video_progress" }

func (p *VideoProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasSegment reports whether segment i is recorded as completed.
func (p *VideoProgress) HasSegment(i int) bool {
	for _, s := range p.CompletedSegments {
		if s == i {
			return true
		}
	}
	return false
}
