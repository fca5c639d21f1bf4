package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/learning/gate"
	"github.com/yungbote/learnquest-backend/internal/learning/reward"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session request")
)

type OpenRequest struct {
	VideoID         string  `json:"video_id" validate:"required,max=256"`
	Title           string  `json:"title" validate:"max=512"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=0,lte=86400"`
	SourceURI       string  `json:"source_uri" validate:"omitempty,max=2048"`
}

// Session is one learner watching one video.
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	VideoID  string
	Title    string
	OpenedAt time.Time
	Gate     *gate.Gate
	Player   *RemotePlayer

	lastSeen atomic.Int64
}

func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

type SessionConfig struct {
	SegmentLength  float64
	IdleTimeout    time.Duration
	ReapInterval   time.Duration
	PersistTimeout time.Duration
}

type SessionService interface {
	// Open starts a session. An open session for the same (user, video) is
	// closed first.
	Open(ctx context.Context, userID uuid.UUID, req OpenRequest) (*Session, error)
	Get(userID, sessionID uuid.UUID) (*Session, error)
	// SetDuration forwards a reported duration to the gate and records the
	// resulting segment count.
	SetDuration(ctx context.Context, sess *Session, seconds float64) error
	Close(ctx context.Context, userID, sessionID uuid.UUID) error
	// RunReaper closes idle sessions until ctx ends.
	RunReaper(ctx context.Context) error
	CloseAll()
	Count() int
}

type sessionService struct {
	log         *logger.Logger
	cfg         SessionConfig
	quizzes     SegmentQuizService
	transcripts TranscriptService
	progress    VideoProgressService
	rewards     reward.Sink
	emitter     sse.Emitter

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	byVideo  map[string]uuid.UUID
}

func NewSessionService(
	log *logger.Logger,
	cfg SessionConfig,
	quizzes SegmentQuizService,
	transcripts TranscriptService,
	progress VideoProgressService,
	rewards reward.Sink,
	emitter sse.Emitter,
) SessionService {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &sessionService{
		log:         log.With("service", "SessionService"),
		cfg:         cfg,
		quizzes:     quizzes,
		transcripts: transcripts,
		progress:    progress,
		rewards:     rewards,
		emitter:     emitter,
		sessions:    map[uuid.UUID]*Session{},
		byVideo:     map[string]uuid.UUID{},
	}
}

func videoKey(userID uuid.UUID, videoID string) string {
	return userID.String() + "|" + videoID
}

func (s *sessionService) Open(ctx context.Context, userID uuid.UUID, req OpenRequest) (*Session, error) {
	req.VideoID = strings.TrimSpace(req.VideoID)
	if userID == uuid.Nil || req.VideoID == "" {
		return nil, fmt.Errorf("%w: user and video id required", ErrInvalidSession)
	}
	if math.IsNaN(req.DurationSeconds) || math.IsInf(req.DurationSeconds, 0) || req.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: invalid duration", ErrInvalidSession)
	}
	if req.DurationSeconds > segment.MaxDuration {
		return nil, fmt.Errorf("%w: duration exceeds %v seconds", ErrInvalidSession, segment.MaxDuration)
	}

	if prev := s.detachByVideo(userID, req.VideoID); prev != nil {
		s.log.Info("Replacing open session", "session_id", prev.ID, "video_id", req.VideoID)
		s.shutdown(ctx, prev, "replaced")
	}

	base := ctxutil.Detached(ctx)
	sess := &Session{
		ID:       uuid.New(),
		UserID:   userID,
		VideoID:  req.VideoID,
		Title:    req.Title,
		OpenedAt: time.Now().UTC(),
		Player:   NewRemotePlayer(),
	}
	sess.Touch()

	var transcripts gate.TranscriptFunc
	if s.transcripts != nil {
		transcripts = s.transcripts.SegmentTranscripts(ctx, req.VideoID, req.Title, req.SourceURI)
	}
	g, err := gate.New(gate.Config{
		UserID:        userID,
		VideoID:       req.VideoID,
		Title:         req.Title,
		SegmentLength: s.cfg.SegmentLength,
		Player:        sess.Player,
		Quizzes:       s.quizzes.ForVideo(req.VideoID),
		Events: &gateEvents{
			log:       s.log.With("session_id", sess.ID),
			ctx:       base,
			timeout:   s.cfg.PersistTimeout,
			emitter:   s.emitter,
			progress:  s.progress,
			userID:    userID,
			videoID:   req.VideoID,
			sessionID: sess.ID,
		},
		Rewards:     s.rewards,
		Transcripts: transcripts,
		Context:     base,
		Log:         s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("create gate: %w", err)
	}
	sess.Gate = g

	if s.progress != nil {
		row, err := s.progress.Load(ctx, userID, req.VideoID)
		if err != nil {
			s.log.Warn("Loading video progress failed, starting fresh", "video_id", req.VideoID, "error", err)
		} else if row != nil {
			if err := g.Restore([]int(row.CompletedSegments), row.CourseCompleted); err != nil {
				s.log.Warn("Restoring video progress failed", "video_id", req.VideoID, "error", err)
			}
		}
		if err := s.progress.MarkOpened(ctx, userID, req.VideoID, req.Title); err != nil {
			s.log.Warn("MarkOpened failed", "video_id", req.VideoID, "error", err)
		}
	}
	if req.DurationSeconds > 0 {
		if err := s.SetDuration(ctx, sess, req.DurationSeconds); err != nil {
			g.Close()
			return nil, err
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.byVideo[videoKey(userID, req.VideoID)] = sess.ID
	count := len(s.sessions)
	s.mu.Unlock()
	observability.Current().SetSessionsOpen(count)

	go g.RunAccumulator(base)
	go s.pumpPlayer(base, sess)

	s.log.Info("Session opened", "session_id", sess.ID, "user_id", userID, "video_id", req.VideoID)
	return sess, nil
}

func (s *sessionService) Get(userID, sessionID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	sess.Touch()
	return sess, nil
}

func (s *sessionService) SetDuration(ctx context.Context, sess *Session, seconds float64) error {
	if err := sess.Gate.SetDuration(seconds); err != nil {
		return err
	}
	if s.progress == nil {
		return nil
	}
	if total := sess.Gate.State().TotalSegments; total > 0 {
		if err := s.progress.SetTotalSegments(ctx, sess.UserID, sess.VideoID, total); err != nil {
			s.log.Warn("SetTotalSegments failed", "session_id", sess.ID, "error", err)
		}
	}
	return nil
}

func (s *sessionService) Close(ctx context.Context, userID, sessionID uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.removeLocked(sess)
	s.mu.Unlock()

	s.shutdown(ctx, sess, "closed")
	return nil
}

func (s *sessionService) RunReaper(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.reap(ctx, now)
		}
	}
}

func (s *sessionService) reap(ctx context.Context, now time.Time) int {
	var idle []*Session
	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.idleSince(now) >= s.cfg.IdleTimeout {
			s.removeLocked(sess)
			idle = append(idle, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		s.log.Info("Reaping idle session", "session_id", sess.ID, "video_id", sess.VideoID)
		s.shutdown(ctx, sess, "idle")
	}
	return len(idle)
}

func (s *sessionService) CloseAll() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = map[uuid.UUID]*Session{}
	s.byVideo = map[string]uuid.UUID{}
	s.mu.Unlock()
	observability.Current().SetSessionsOpen(0)

	for _, sess := range all {
		sess.Gate.Close()
	}
}

func (s *sessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionService) detachByVideo(userID uuid.UUID, videoID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byVideo[videoKey(userID, videoID)]
	if !ok {
		return nil
	}
	sess := s.sessions[id]
	if sess != nil {
		s.removeLocked(sess)
	}
	return sess
}

func (s *sessionService) removeLocked(sess *Session) {
	delete(s.sessions, sess.ID)
	key := videoKey(sess.UserID, sess.VideoID)
	if s.byVideo[key] == sess.ID {
		delete(s.byVideo, key)
	}
	observability.Current().SetSessionsOpen(len(s.sessions))
}

func (s *sessionService) shutdown(ctx context.Context, sess *Session, reason string) {
	sess.Gate.Close()
	if s.emitter != nil {
		s.emitter.Emit(ctx, sse.SSEMessage{
			Channel: sse.UserChannel(sess.UserID),
			Event:   sse.SSEEventSessionClosed,
			Data:    map[string]any{"session_id": sess.ID, "video_id": sess.VideoID, "reason": reason},
		})
	}
}

// pumpPlayer publishes player commands over SSE as the gate issues them.
func (s *sessionService) pumpPlayer(ctx context.Context, sess *Session) {
	var cursor int64
	for {
		select {
		case <-sess.Gate.Done():
			return
		case <-sess.Player.Notify():
			for _, cmd := range sess.Player.Since(cursor) {
				cursor = cmd.Seq
				if s.emitter == nil {
					continue
				}
				s.emitter.Emit(ctx, sse.SSEMessage{
					Channel: sse.UserChannel(sess.UserID),
					Event:   sse.SSEEventPlayerCommand,
					Data:    map[string]any{"session_id": sess.ID, "command": cmd},
				})
			}
		}
	}
}
