package gate

import (
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/learning/segment"
)

// State is a point-in-time snapshot of a gate. Quiz answers are not part of
// it.
type State struct {
	UserID             uuid.UUID         `json:"user_id"`
	VideoID            string            `json:"video_id"`
	Phase              Phase             `json:"phase"`
	CurrentSegment     int               `json:"current_segment"`
	TotalSegments      int               `json:"total_segments"`
	CompletedSegments  []int             `json:"completed_segments"`
	CompletionPercent  int               `json:"completion_percent"`
	WatchSeconds       int               `json:"watch_seconds"`
	Playing            bool              `json:"playing"`
	Position           float64           `json:"position"`
	LastSelectedOption *int              `json:"last_selected_option,omitempty"`
	LastAnswerCorrect  *bool             `json:"last_answer_correct,omitempty"`
	QuizReady          bool              `json:"quiz_ready"`
	Closed             bool              `json:"closed"`
	Segments           []segment.Segment `json:"segments"`
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := State{
		UserID:            g.userID,
		VideoID:           g.videoID,
		Phase:             g.phase,
		CurrentSegment:    g.current,
		TotalSegments:     len(g.segments),
		CompletedSegments: []int{},
		WatchSeconds:      g.watchSeconds,
		Playing:           g.playing,
		Position:          g.position,
		Closed:            g.closed,
		Segments:          make([]segment.Segment, len(g.segments)),
	}
	for i, s := range g.segments {
		s.Quiz = nil
		st.Segments[i] = s
		if s.Completed {
			st.CompletedSegments = append(st.CompletedSegments, i)
		}
	}
	st.CompletionPercent = completionPercent(len(st.CompletedSegments), len(g.segments))
	if len(g.segments) > 0 {
		st.QuizReady = g.segments[g.current].Quiz != nil &&
			(g.phase == PhaseAwaitingAnswer || g.phase == PhaseAnswerSubmitted)
	}
	if g.phase == PhaseAnswerSubmitted && g.lastSelected >= 0 {
		sel, ok := g.lastSelected, g.lastCorrect
		st.LastSelectedOption = &sel
		st.LastAnswerCorrect = &ok
	}
	return st
}

// completionPercent is completed/total*100 rounded to the nearest integer.
func completionPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
