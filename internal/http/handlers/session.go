package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/http/response"
	"github.com/yungbote/learnquest-backend/internal/learning/gate"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/apierr"
	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions services.SessionService
	quizWait time.Duration
}

func NewSessionHandler(log *logger.Logger, sessions services.SessionService, quizWait time.Duration) *SessionHandler {
	if quizWait <= 0 {
		quizWait = 15 * time.Second
	}
	return &SessionHandler{
		log:      log.With("handler", "SessionHandler"),
		sessions: sessions,
		quizWait: quizWait,
	}
}

type sessionResponse struct {
	SessionID uuid.UUID                `json:"session_id"`
	VideoID   string                   `json:"video_id"`
	Title     string                   `json:"title,omitempty"`
	State     gate.State               `json:"state"`
	Commands  []services.PlayerCommand `json:"commands"`
}

func newSessionResponse(sess *services.Session) sessionResponse {
	cmds := sess.Player.Drain()
	if cmds == nil {
		cmds = []services.PlayerCommand{}
	}
	return sessionResponse{
		SessionID: sess.ID,
		VideoID:   sess.VideoID,
		Title:     sess.Title,
		State:     sess.Gate.State(),
		Commands:  cmds,
	}
}

// POST /api/sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req services.OpenRequest
	if err := bindJSON(c, &req); err != nil {
		respondErr(c, err)
		return
	}
	sess, err := h.sessions.Open(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	ctxutil.TagSession(c.Request.Context(), sess.ID, sess.VideoID)
	response.RespondCreated(c, newSessionResponse(sess))
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.RespondOK(c, newSessionResponse(sess))
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Close(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(c.Request.Context(), ctxutil.UserID(c.Request.Context()), id); err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": id, "closed": true})
}

type durationRequest struct {
	DurationSeconds *float64 `json:"duration_seconds" validate:"required,gte=0,lte=86400"`
}

// POST /api/sessions/:id/duration
func (h *SessionHandler) SetDuration(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req durationRequest
	if err := bindJSON(c, &req); err != nil {
		respondErr(c, err)
		return
	}
	if err := h.sessions.SetDuration(c.Request.Context(), sess, *req.DurationSeconds); err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, newSessionResponse(sess))
}

type playbackRequest struct {
	Playing *bool `json:"playing" validate:"required"`
}

// POST /api/sessions/:id/playback
func (h *SessionHandler) SetPlayback(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req playbackRequest
	if err := bindJSON(c, &req); err != nil {
		respondErr(c, err)
		return
	}
	h.mutate(c, sess, func() error { return sess.Gate.SetPlaying(*req.Playing) })
}

// Seq is the last player command the client applied. Reports that carry
// it are dropped when they predate the latest seek.
type progressRequest struct {
	CurrentTime *float64 `json:"current_time" validate:"required"`
	Seq         *int64   `json:"seq" validate:"omitempty,gte=0"`
}

// POST /api/sessions/:id/progress
func (h *SessionHandler) ReportProgress(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := bindJSON(c, &req); err != nil {
		respondErr(c, err)
		return
	}
	h.mutate(c, sess, func() error {
		if req.Seq == nil {
			if err := sess.Gate.ReportProgress(*req.CurrentTime); err != nil {
				return err
			}
			sess.Player.Report(*req.CurrentTime)
			return nil
		}
		applied, err := sess.Gate.ReportSeenProgress(*req.CurrentTime, *req.Seq)
		if err != nil || !applied {
			return err
		}
		sess.Player.ReportSeen(*req.CurrentTime, *req.Seq)
		return nil
	})
}

// GET /api/sessions/:id/quiz waits up to the configured bound for the
// active segment's quiz.
func (h *SessionHandler) Quiz(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.quizWait)
	defer cancel()
	q, err := sess.Gate.Quiz(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, services.NewQuizView(sess.Gate.State().CurrentSegment, q))
}

type answerRequest struct {
	Option *int `json:"option" validate:"required"`
}

type answerResponse struct {
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correct_option"`
	Explanation   string `json:"explanation"`
	sessionResponse
}

// POST /api/sessions/:id/answer
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := bindJSON(c, &req); err != nil {
		respondErr(c, err)
		return
	}
	correct, err := sess.Gate.SubmitAnswer(*req.Option)
	if err != nil {
		respondErr(c, err)
		return
	}
	observability.Current().IncAnswer(correct)
	q, err := sess.Gate.Quiz(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, answerResponse{
		Correct:         correct,
		CorrectOption:   q.CorrectIndex,
		Explanation:     q.Explanation,
		sessionResponse: newSessionResponse(sess),
	})
}

// POST /api/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.mutate(c, sess, sess.Gate.Advance)
}

// POST /api/sessions/:id/retry
func (h *SessionHandler) Retry(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.mutate(c, sess, sess.Gate.RetryCurrentSegment)
}

// POST /api/sessions/:id/rewatch
func (h *SessionHandler) Rewatch(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.mutate(c, sess, sess.Gate.Rewatch)
}

func (h *SessionHandler) mutate(c *gin.Context, sess *services.Session, op func() error) {
	if err := op(); err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, newSessionResponse(sess))
}

func (h *SessionHandler) session(c *gin.Context) (*services.Session, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Get(ctxutil.UserID(c.Request.Context()), id)
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	ctxutil.TagSession(c.Request.Context(), sess.ID, sess.VideoID)
	return sess, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusNotFound, "session_not_found", services.ErrSessionNotFound))
		return uuid.Nil, false
	}
	return id, true
}
