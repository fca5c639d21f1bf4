package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

// RequestLogger writes one line per request, naming the learner and the
// viewing session a handler tagged. Event streams and health checks log at
// debug level.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if size := c.Writer.Size(); size > 0 {
			fields = append(fields, "bytes", size)
		}
		fields = append(fields, requestFields(c)...)

		msg := "HTTP request"
		quiet := path == "/healthcheck"
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			msg = "Event stream closed"
			quiet = true
		}

		switch {
		case status >= 500:
			log.Error(msg, fields...)
		case status >= 400:
			log.Warn(msg, fields...)
		case quiet:
			log.Debug(msg, fields...)
		default:
			log.Info(msg, fields...)
		}
	}
}

func requestFields(c *gin.Context) []interface{} {
	var fields []interface{}
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			fields = append(fields, "request_id", td.RequestID)
		}
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return fields
	}
	if rd.UserID != uuid.Nil {
		fields = append(fields, "user_id", rd.UserID.String())
	}
	if rd.SessionID != uuid.Nil {
		fields = append(fields, "session_id", rd.SessionID.String())
	}
	if rd.VideoID != "" {
		fields = append(fields, "video_id", rd.VideoID)
	}
	return fields
}
