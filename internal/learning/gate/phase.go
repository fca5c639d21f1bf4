package gate

type Phase string

const (
	PhaseWatching        Phase = "watching"
	PhaseAwaitingAnswer  Phase = "awaiting_answer"
	PhaseAnswerSubmitted Phase = "answer_submitted"
	// PhaseCourseCompleted is terminal.
	PhaseCourseCompleted Phase = "course_completed"
)

func (p Phase) Terminal() bool { return p == PhaseCourseCompleted }
