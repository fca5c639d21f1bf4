package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

func TestRequestLoggerNamesTaggedSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	sessionID := uuid.New()
	r := gin.New()
	r.Use(AttachTraceContext())
	r.Use(func(c *gin.Context) {
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: uuid.New()})
		c.Request = c.Request.WithContext(ctx)
	})
	r.Use(RequestLogger(log))
	r.GET("/api/sessions/:id", func(c *gin.Context) {
		ctxutil.TagSession(c.Request.Context(), sessionID, "vid-7")
		c.String(http.StatusOK, "ok")
	})
	r.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/api/sessions/" + sessionID.String(), "/healthcheck"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(entries))
	}
	session := entries[0].ContextMap()
	if entries[0].Level != zapcore.InfoLevel || session["video_id"] != "vid-7" || session["session_id"] != sessionID.String() {
		t.Fatalf("session entry=%v level=%s", session, entries[0].Level)
	}
	if session["path"] != "/api/sessions/:id" || session["user_id"] == nil {
		t.Fatalf("session entry=%v", session)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Fatalf("health check logged at %s", entries[1].Level)
	}
	if _, tagged := entries[1].ContextMap()["session_id"]; tagged {
		t.Fatalf("untagged request carries a session")
	}
}
