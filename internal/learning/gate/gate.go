// Package gate implements the per-session mastery gate for a segmented
// video: playback pauses at every segment boundary and the learner cannot
// move to the next segment without answering that segment's quiz correctly.
//
// A Gate is safe for concurrent use. Every mutation happens under one mutex.
// Player commands are issued under that lock so the surface never sees a
// command out of order with the state change. Events and rewards are
// emitted after the lock is released, in the order the changes happened.
package gate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/reward"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

const (
	XPPerCorrectAnswer      = 25
	XPCourseCompletionBonus = 200
	StudyMinutesPerTick     = 1
	// ProblemsPerCorrectAnswer is credited once per segment.
	ProblemsPerCorrectAnswer = 1

	secondsPerMinute = 60
)

// TranscriptFunc attaches transcripts to freshly built segments.
type TranscriptFunc func(segs []segment.Segment)

type Config struct {
	UserID  uuid.UUID
	VideoID string
	Title   string
	// SegmentLength defaults to segment.DefaultLength.
	SegmentLength float64

	Player  Player
	Quizzes QuizSource
	Events  Events
	Rewards reward.Sink
	// Transcripts defaults to segment.SynthesizeTranscripts with Title.
	Transcripts TranscriptFunc
	// Context is the parent of the gate's lifetime context. It carries
	// request-scoped values to quiz resolution; it should not be a request
	// context that ends before the session does.
	Context context.Context
	Log     *logger.Logger
}

type Gate struct {
	log         *logger.Logger
	userID      uuid.UUID
	videoID     string
	segLen      float64
	player      Player
	quizzes     QuizSource
	events      Events
	rewards     reward.Sink
	transcripts TranscriptFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	segments     []segment.Segment
	current      int
	phase        Phase
	playing      bool
	position     float64
	watchSeconds int
	lastSelected int
	lastCorrect  bool
	quizReady    map[int]chan struct{}
	// courseAwarded is set once the completion bonus has been granted for
	// this video, in this session or an earlier one.
	courseAwarded bool
	restore       *restoreState
}

type restoreState struct {
	completed       []int
	courseCompleted bool
}

func New(cfg Config) (*Gate, error) {
	if cfg.Player == nil {
		return nil, fmt.Errorf("gate: player required")
	}
	if cfg.Quizzes == nil {
		return nil, fmt.Errorf("gate: quiz source required")
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Events == nil {
		cfg.Events = nopEvents{}
	}
	if cfg.Rewards == nil {
		cfg.Rewards = reward.SinkFunc(func(reward.Reward) {})
	}
	if cfg.SegmentLength <= 0 || math.IsNaN(cfg.SegmentLength) || math.IsInf(cfg.SegmentLength, 0) {
		cfg.SegmentLength = segment.DefaultLength
	}
	if cfg.Transcripts == nil {
		title := cfg.Title
		cfg.Transcripts = func(segs []segment.Segment) { segment.SynthesizeTranscripts(title, segs) }
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Gate{
		log:          cfg.Log.With("component", "SegmentGate", "video_id", cfg.VideoID),
		userID:       cfg.UserID,
		videoID:      cfg.VideoID,
		segLen:       cfg.SegmentLength,
		player:       cfg.Player,
		quizzes:      cfg.Quizzes,
		events:       cfg.Events,
		rewards:      cfg.Rewards,
		transcripts:  cfg.Transcripts,
		ctx:          ctx,
		cancel:       cancel,
		phase:        PhaseWatching,
		lastSelected: -1,
		quizReady:    map[int]chan struct{}{},
	}, nil
}

// effects are callbacks collected under the lock and run after it is
// released.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

func validTime(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t >= 0
}

// SetDuration builds the segment list the first time a positive duration is
// reported. Zero keeps the gate inert; later calls are no-ops. Durations
// above segment.MaxDuration are rejected.
func (g *Gate) SetDuration(seconds float64) error {
	if !validTime(seconds) {
		return fmt.Errorf("%w: duration %v", ErrInvalidInput, seconds)
	}
	if seconds > segment.MaxDuration {
		return fmt.Errorf("%w: duration %v exceeds %v", ErrInvalidInput, seconds, segment.MaxDuration)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if len(g.segments) == 0 && seconds > 0 {
		segs := segment.Build(seconds, g.segLen)
		if len(segs) == 0 {
			return fmt.Errorf("%w: duration %v does not partition into %v second segments", ErrInvalidInput, seconds, g.segLen)
		}
		g.transcripts(segs)
		g.segments = segs
		g.log.Debug("Segments built", "duration", seconds, "segments", len(segs))
		if g.restore != nil {
			g.applyRestoreLocked(*g.restore)
			g.restore = nil
		}
	}
	return nil
}

// SetPlaying records the surface's playback state. Watch time only
// accumulates while playing.
func (g *Gate) SetPlaying(playing bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	g.playing = playing
	return nil
}

// ReportProgress handles a position update from the player. Reaching the end
// of the active segment while watching pauses playback and starts resolving
// the segment's quiz. Only the active segment's boundary is checked.
func (g *Gate) ReportProgress(currentTime float64) error {
	_, err := g.reportProgress(currentTime, nil)
	return err
}

// ReportSeenProgress is ReportProgress for a client that has applied player
// commands up to seen. When the player is a SeekTracker and the report
// predates its latest seek, the report is dropped and false is returned.
func (g *Gate) ReportSeenProgress(currentTime float64, seen int64) (bool, error) {
	return g.reportProgress(currentTime, &seen)
}

func (g *Gate) reportProgress(currentTime float64, seen *int64) (bool, error) {
	if !validTime(currentTime) {
		return false, fmt.Errorf("%w: current time %v", ErrInvalidInput, currentTime)
	}
	var fx effects
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false, ErrClosed
	}
	if seen != nil {
		if st, ok := g.player.(SeekTracker); ok && st.StaleReport(*seen) {
			g.mu.Unlock()
			g.log.Debug("Dropping progress report older than last seek", "position", currentTime, "seen", *seen)
			return false, nil
		}
	}
	g.position = currentTime
	if g.phase == PhaseWatching && len(g.segments) > 0 && currentTime >= g.segments[g.current].End {
		g.playing = false
		g.phase = PhaseAwaitingAnswer
		g.lastSelected = -1
		g.lastCorrect = false
		g.player.Pause()
		g.startQuizLocked(g.current, &fx)
		g.log.Debug("Segment boundary reached", "segment", g.current, "position", currentTime)
	}
	g.mu.Unlock()
	fx.run()
	return true, nil
}

// startQuizLocked makes sure the quiz for segment idx is resolved at most
// once. A quiz that is already set is announced right away.
func (g *Gate) startQuizLocked(idx int, fx *effects) {
	if q := g.segments[idx].Quiz; q != nil {
		ready := q.Clone()
		fx.add(func() { g.events.QuizReady(idx, ready) })
		return
	}
	if _, inFlight := g.quizReady[idx]; inFlight {
		return
	}
	done := make(chan struct{})
	g.quizReady[idx] = done
	seg := g.segments[idx]
	go g.resolveQuiz(idx, seg, done)
}

func (g *Gate) resolveQuiz(idx int, seg segment.Segment, done chan struct{}) {
	settled := false
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("Quiz resolution panicked", "segment", idx, "panic", r)
		}
		if !settled {
			g.abandonQuiz(idx, done)
		}
	}()

	q := g.quizzes.SegmentQuiz(g.ctx, seg)
	if err := q.Validate(); err != nil {
		g.log.Error("Quiz source returned invalid question", "segment", idx, "error", err)
		return
	}

	g.mu.Lock()
	settled = true
	if g.closed {
		g.mu.Unlock()
		return
	}
	if g.segments[idx].Quiz == nil {
		stored := q.Clone()
		g.segments[idx].Quiz = &stored
	}
	close(done)
	announce := g.current == idx && g.phase == PhaseAwaitingAnswer
	ready := g.segments[idx].Quiz.Clone()
	g.mu.Unlock()

	if announce {
		g.events.QuizReady(idx, ready)
	}
}

// abandonQuiz forgets a failed resolution so the next boundary crossing
// starts a new one, and wakes any waiter.
func (g *Gate) abandonQuiz(idx int, done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.quizReady[idx] == done {
		delete(g.quizReady, idx)
		close(done)
	}
}

// Quiz waits until the active segment's quiz has settled and returns it.
// When no resolution is in flight a new one is started.
func (g *Gate) Quiz(ctx context.Context) (quiz.Question, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return quiz.Question{}, ErrClosed
	}
	if len(g.segments) == 0 || (g.phase != PhaseAwaitingAnswer && g.phase != PhaseAnswerSubmitted) {
		g.mu.Unlock()
		return quiz.Question{}, ErrInvalidTransition
	}
	idx := g.current
	if q := g.segments[idx].Quiz; q != nil {
		out := q.Clone()
		g.mu.Unlock()
		return out, nil
	}
	done, ok := g.quizReady[idx]
	if !ok {
		// An earlier resolution failed; start over instead of waiting on
		// nothing.
		var fx effects
		g.startQuizLocked(idx, &fx)
		done = g.quizReady[idx]
		g.mu.Unlock()
		fx.run()
	} else {
		g.mu.Unlock()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return quiz.Question{}, fmt.Errorf("%w: %v", ErrQuizNotReady, ctx.Err())
	case <-g.ctx.Done():
		return quiz.Question{}, ErrClosed
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return quiz.Question{}, ErrClosed
	}
	if g.segments[idx].Quiz == nil {
		return quiz.Question{}, ErrQuizNotReady
	}
	return g.segments[idx].Quiz.Clone(), nil
}

// SubmitAnswer checks option against the active segment's quiz. A first
// correct answer completes the segment and earns its reward; answering an
// already completed segment again earns nothing.
func (g *Gate) SubmitAnswer(option int) (bool, error) {
	var fx effects
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false, ErrClosed
	}
	if g.phase != PhaseAwaitingAnswer {
		g.mu.Unlock()
		return false, ErrInvalidTransition
	}
	seg := &g.segments[g.current]
	if seg.Quiz == nil {
		g.mu.Unlock()
		return false, ErrQuizNotReady
	}
	if option < 0 || option >= len(seg.Quiz.Options) {
		g.mu.Unlock()
		return false, fmt.Errorf("%w: option %d of %d", ErrInvalidInput, option, len(seg.Quiz.Options))
	}

	correct := seg.Quiz.IsCorrect(option)
	g.lastSelected = option
	g.lastCorrect = correct
	g.phase = PhaseAnswerSubmitted
	if correct && !seg.Completed {
		seg.Completed = true
		idx := seg.Index
		fx.add(func() { g.events.SegmentCompleted(idx) })
		g.deliverLocked(&fx, ProblemsPerCorrectAnswer, 0, XPPerCorrectAnswer, reward.ReasonSegmentCompleted)
	}
	g.mu.Unlock()
	fx.run()
	return correct, nil
}

// Advance moves past a passed segment: to the start of the next one, or to
// the terminal course-completed phase after the last.
func (g *Gate) Advance() error {
	var fx effects
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.phase.Terminal() || len(g.segments) == 0 {
		g.mu.Unlock()
		return ErrInvalidTransition
	}
	if g.phase != PhaseAnswerSubmitted || !g.lastCorrect {
		g.mu.Unlock()
		return ErrNotPassed
	}

	g.lastSelected = -1
	g.lastCorrect = false
	if g.current+1 < len(g.segments) {
		g.current++
		g.phase = PhaseWatching
		g.playing = true
		start := g.segments[g.current].Start
		g.position = start
		g.player.SeekTo(start)
		g.player.Play()
	} else {
		g.phase = PhaseCourseCompleted
		g.playing = false
		fx.add(g.events.CourseCompleted)
		if !g.courseAwarded {
			g.courseAwarded = true
			g.deliverLocked(&fx, 0, 0, XPCourseCompletionBonus, reward.ReasonCourseCompleted)
		}
		g.log.Info("Course completed", "segments", len(g.segments))
	}
	g.mu.Unlock()
	fx.run()
	return nil
}

// RetryCurrentSegment re-arms the quiz after an incorrect answer.
func (g *Gate) RetryCurrentSegment() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.phase != PhaseAnswerSubmitted || g.lastCorrect {
		return ErrInvalidTransition
	}
	g.lastSelected = -1
	g.phase = PhaseAwaitingAnswer
	return nil
}

// Rewatch seeks back to the active segment's start and resumes watching. The
// segment's completion flag is left alone.
func (g *Gate) Rewatch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.phase.Terminal() || len(g.segments) == 0 {
		return ErrInvalidTransition
	}
	g.phase = PhaseWatching
	g.lastSelected = -1
	g.lastCorrect = false
	g.playing = true
	start := g.segments[g.current].Start
	g.position = start
	g.player.SeekTo(start)
	g.player.Play()
	return nil
}

// Restore resumes a video from persisted progress. It may be called before
// the duration is known; it then applies once segments exist.
func (g *Gate) Restore(completed []int, courseCompleted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.phase != PhaseWatching {
		return ErrInvalidTransition
	}
	rs := restoreState{completed: append([]int(nil), completed...), courseCompleted: courseCompleted}
	if len(g.segments) == 0 {
		g.restore = &rs
		g.courseAwarded = g.courseAwarded || courseCompleted
		return nil
	}
	g.applyRestoreLocked(rs)
	return nil
}

func (g *Gate) applyRestoreLocked(rs restoreState) {
	if rs.courseCompleted {
		g.courseAwarded = true
	}
	for _, i := range rs.completed {
		if i >= 0 && i < len(g.segments) {
			g.segments[i].Completed = true
		}
	}
	first := -1
	for i := range g.segments {
		if !g.segments[i].Completed {
			first = i
			break
		}
	}
	if first <= g.current {
		return
	}
	g.current = first
	start := g.segments[first].Start
	g.position = start
	g.player.SeekTo(start)
}

// Tick is one step of the 1 Hz watch-time accumulator. Every full minute
// watched emits a progress tick and a study-time reward.
func (g *Gate) Tick() {
	var fx effects
	g.mu.Lock()
	if g.closed || !g.playing || g.phase != PhaseWatching {
		g.mu.Unlock()
		return
	}
	g.watchSeconds++
	if g.watchSeconds%secondsPerMinute == 0 {
		minutes := g.watchSeconds / secondsPerMinute
		fx.add(func() { g.events.ProgressTick(minutes) })
		g.deliverLocked(&fx, 0, StudyMinutesPerTick, 0, reward.ReasonStudyMinute)
	}
	g.mu.Unlock()
	fx.run()
}

// RunAccumulator ticks once a second until ctx ends or the gate closes. Each
// tick also polls the player's position for a boundary crossing.
func (g *Gate) RunAccumulator(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("Watch accumulator panicked", "panic", r)
		}
	}()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.Tick()
			if err := g.poll(); errors.Is(err, ErrClosed) {
				return
			}
		}
	}
}

func (g *Gate) poll() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	t := g.player.CurrentTime()
	g.mu.Unlock()
	return g.ReportProgress(t)
}

// Close discards the session. In-flight quiz resolution is cancelled and its
// result ignored; every later operation returns ErrClosed.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.cancel()
}

// Done is closed when the gate is closed or its parent context ends.
func (g *Gate) Done() <-chan struct{} { return g.ctx.Done() }

func (g *Gate) deliverLocked(fx *effects, problems, minutes, xp int, reason reward.Reason) {
	r := reward.Reward{
		UserID:         g.userID,
		VideoID:        g.videoID,
		ProblemsSolved: problems,
		StudyMinutes:   minutes,
		XPEarned:       xp,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	fx.add(func() { g.rewards.Deliver(r) })
}
