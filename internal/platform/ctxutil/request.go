package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData carries the authenticated learner for the current request and,
// once a handler has resolved it, the viewing session it acts on.
type RequestData struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	VideoID   string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// UserID returns uuid.Nil when no learner is attached.
func UserID(ctx context.Context) uuid.UUID {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}

// TagSession records the session a request operates on so the request log
// can name it. It is a no-op without request data.
func TagSession(ctx context.Context, sessionID uuid.UUID, videoID string) {
	if rd := GetRequestData(ctx); rd != nil {
		rd.SessionID = sessionID
		rd.VideoID = videoID
	}
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
