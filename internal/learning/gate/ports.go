package gate

import (
	"context"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
)

// Player is the playback surface the gate drives.
type Player interface {
	CurrentTime() float64
	SeekTo(seconds float64)
	Play()
	Pause()
}

// SeekTracker is implemented by players whose position reports can arrive
// after the gate has already moved them.
type SeekTracker interface {
	// StaleReport reports whether a client that has applied commands up to
	// seen has not yet applied the latest seek.
	StaleReport(seen int64) bool
}

// Events receives the signals a gate emits outward.
type Events interface {
	SegmentCompleted(index int)
	CourseCompleted()
	ProgressTick(minutesWatched int)
	QuizReady(index int, q quiz.Question)
}

// QuizSource returns the question for a segment. It must not fail; ctx is
// cancelled when the gate closes.
type QuizSource interface {
	SegmentQuiz(ctx context.Context, seg segment.Segment) quiz.Question
}

type nopEvents struct{}

func (nopEvents) SegmentCompleted(int)         {}
func (nopEvents) CourseCompleted()             {}
func (nopEvents) ProgressTick(int)             {}
func (nopEvents) QuizReady(int, quiz.Question) {}
