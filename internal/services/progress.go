package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/learning/reward"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
	"github.com/yungbote/learnquest-backend/internal/sse"
	"github.com/yungbote/learnquest-backend/internal/types"
)

// XPPerLevel is the experience needed to gain one level.
const XPPerLevel = 1000

// ProgressService owns the learner profile. It is the persistence end of
// reward delivery.
type ProgressService interface {
	reward.ProgressUpdater
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.UserProfileRepo
	emitter  sse.Emitter
	now      func() time.Time
}

func NewProgressService(db *gorm.DB, log *logger.Logger, profiles repos.UserProfileRepo, emitter sse.Emitter) ProgressService {
	return &progressService{
		db:       db,
		log:      log.With("service", "ProgressService"),
		profiles: profiles,
		emitter:  emitter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	p, err := s.profiles.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		p = &types.UserProfile{ID: userID, Level: 1}
	}
	return p, nil
}

// UpdateProgress applies a reward delta. Requests that can never succeed
// wrap reward.ErrRejected so the reward queue drops them instead of retrying.
func (s *progressService) UpdateProgress(ctx context.Context, userID uuid.UUID, problemsSolved, studyMinutes, xpEarned int) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user id required", reward.ErrRejected)
	}
	if problemsSolved < 0 || studyMinutes < 0 || xpEarned < 0 {
		return fmt.Errorf("%w: negative progress delta (%d, %d, %d)", reward.ErrRejected, problemsSolved, studyMinutes, xpEarned)
	}
	if problemsSolved == 0 && studyMinutes == 0 && xpEarned == 0 {
		return nil
	}

	var updated *types.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.profiles.GetOrCreateForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		p.ProblemsSolved += problemsSolved
		p.StudyMinutes += studyMinutes
		p.XP += xpEarned
		p.Level = levelForXP(p.XP)
		advanceStreak(p, s.now())
		if err := s.profiles.Save(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		s.log.Warn("UpdateProgress failed", "user_id", userID, "error", err)
		return fmt.Errorf("update progress: %w", err)
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, sse.SSEMessage{
			Channel: sse.UserChannel(userID),
			Event:   sse.SSEEventProfileUpdated,
			Data:    updated,
		})
	}
	return nil
}

func levelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// advanceStreak counts consecutive UTC calendar days with activity.
func advanceStreak(p *types.UserProfile, now time.Time) {
	today := truncateDay(now)
	switch {
	case p.LastActivityDate == nil:
		p.StreakCount = 1
	case truncateDay(*p.LastActivityDate).Equal(today):
		if p.StreakCount < 1 {
			p.StreakCount = 1
		}
	case truncateDay(*p.LastActivityDate).AddDate(0, 0, 1).Equal(today):
		p.StreakCount++
	default:
		p.StreakCount = 1
	}
	p.LastActivityDate = &today
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InstrumentProgress counts delivery attempts made through u.
func InstrumentProgress(u reward.ProgressUpdater, m *observability.Metrics) reward.ProgressUpdater {
	if m == nil {
		return u
	}
	return &instrumentedProgress{next: u, metrics: m}
}

type instrumentedProgress struct {
	next    reward.ProgressUpdater
	metrics *observability.Metrics
}

func (p *instrumentedProgress) UpdateProgress(ctx context.Context, userID uuid.UUID, problemsSolved, studyMinutes, xpEarned int) error {
	err := p.next.UpdateProgress(ctx, userID, problemsSolved, studyMinutes, xpEarned)
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.IncRewardDelivery(status)
	return err
}
