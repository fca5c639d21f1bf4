package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/learning/segment"
)

type VideoTranscript struct {
	ID           uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID      string                                 `gorm:"column:video_id;not null;uniqueIndex" json:"video_id"`
	SourceURI    string                                 `gorm:"column:source_uri" json:"source_uri"`
	Provider     string                                 `gorm:"column:provider;not null" json:"provider"`
	LanguageCode string                                 `gorm:"column:language_code" json:"language_code"`
	Words        datatypes.JSONSlice[segment.TimedWord] `gorm:"column:words" json:"words"`
	CreatedAt    time.Time                              `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                              `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (VideoTranscript) TableName() string { return "video_transcript" }

func (t *VideoTranscript) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
