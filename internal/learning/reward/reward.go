// Package reward carries progress rewards from a gate to the profile store.
package reward

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// ErrRejected marks a delivery the updater will never accept.
var ErrRejected = errors.New("reward rejected")

type Reason string

const (
	ReasonStudyMinute      Reason = "study_minute"
	ReasonSegmentCompleted Reason = "segment_completed"
	ReasonCourseCompleted  Reason = "course_completed"
)

// Reward is a small positive delta applied to a learner's profile.
type Reward struct {
	UserID         uuid.UUID `json:"user_id"`
	VideoID        string    `json:"video_id"`
	ProblemsSolved int       `json:"problems_solved"`
	StudyMinutes   int       `json:"study_minutes"`
	XPEarned       int       `json:"xp_earned"`
	Reason         Reason    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r Reward) IsZero() bool {
	return r.ProblemsSolved == 0 && r.StudyMinutes == 0 && r.XPEarned == 0
}

// Sink accepts rewards without blocking the caller. Delivery is best effort.
type Sink interface {
	Deliver(r Reward)
}

// ProgressUpdater persists reward deltas.
type ProgressUpdater interface {
	UpdateProgress(ctx context.Context, userID uuid.UUID, problemsSolved, studyMinutes, xpEarned int) error
}

// IsPermanent reports whether err means retrying the same reward is
// pointless: the updater rejected it, or wrapped it with backoff.Permanent.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRejected) {
		return true
	}
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Reward)

func (f SinkFunc) Deliver(r Reward) { f(r) }
