package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile holds a learner's aggregate progress. ID is the user's id.
type UserProfile struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string     `gorm:"column:name" json:"name"`
	Level            int        `gorm:"column:level;not null;default:1" json:"level"`
	XP               int        `gorm:"column:xp;not null;default:0" json:"xp"`
	StreakCount      int        `gorm:"column:streak_count;not null;default:0" json:"streak_count"`
	LastActivityDate *time.Time `gorm:"column:last_activity_date" json:"last_activity_date,omitempty"`
	ProblemsSolved   int        `gorm:"column:problems_solved;not null;default:0" json:"problems_solved"`
	StudyMinutes     int        `gorm:"column:study_minutes;not null;default:0" json:"study_minutes"`
	CreatedAt        time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.Level <= 0 {
		p.Level = 1
	}
	return nil
}
