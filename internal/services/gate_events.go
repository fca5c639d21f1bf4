package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

// QuizView is a question as the learner sees it, without the answer.
type QuizView struct {
	SegmentIndex int      `json:"segment_index"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
}

func NewQuizView(index int, q quiz.Question) QuizView {
	return QuizView{SegmentIndex: index, Question: q.Question, Options: append([]string(nil), q.Options...)}
}

// gateEvents fans gate signals out to the learner's SSE channel and records
// durable progress.
type gateEvents struct {
	log       *logger.Logger
	ctx       context.Context
	timeout   time.Duration
	emitter   sse.Emitter
	progress  VideoProgressService
	userID    uuid.UUID
	videoID   string
	sessionID uuid.UUID
}

func (e *gateEvents) SegmentCompleted(index int) {
	observability.Current().IncSegmentCompleted()
	e.emit(sse.SSEEventSegmentCompleted, map[string]any{"segment_index": index})
	e.persist("RecordSegmentCompleted", func(ctx context.Context) error {
		return e.progress.RecordSegmentCompleted(ctx, e.userID, e.videoID, index)
	})
}

func (e *gateEvents) CourseCompleted() {
	observability.Current().IncCourseCompleted()
	e.emit(sse.SSEEventCourseCompleted, nil)
	e.persist("RecordCourseCompleted", func(ctx context.Context) error {
		return e.progress.RecordCourseCompleted(ctx, e.userID, e.videoID)
	})
}

func (e *gateEvents) ProgressTick(minutesWatched int) {
	e.emit(sse.SSEEventProgressTick, map[string]any{"minutes_watched": minutesWatched})
	e.persist("AddWatchSeconds", func(ctx context.Context) error {
		return e.progress.AddWatchSeconds(ctx, e.userID, e.videoID, 60)
	})
}

func (e *gateEvents) QuizReady(index int, q quiz.Question) {
	e.emit(sse.SSEEventQuizReady, map[string]any{"segment_index": index, "quiz": NewQuizView(index, q)})
}

func (e *gateEvents) emit(event sse.SSEEvent, data map[string]any) {
	if e.emitter == nil {
		return
	}
	payload := map[string]any{"session_id": e.sessionID, "video_id": e.videoID}
	for k, v := range data {
		payload[k] = v
	}
	e.emitter.Emit(e.ctx, sse.SSEMessage{Channel: sse.UserChannel(e.userID), Event: event, Data: payload})
}

func (e *gateEvents) persist(op string, fn func(ctx context.Context) error) {
	if e.progress == nil {
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.log.Warn("Persisting gate event failed", "op", op, "error", err)
	}
}
