package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learnquest-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnquest-backend/internal/http/middleware"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

const (
	apiPrefix   = "/api"
	streamPath  = "/sse/stream"
	streamRoute = apiPrefix + streamPath
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	SessionHandler  *httpH.SessionHandler
	ProfileHandler  *httpH.ProfileHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, streamRoute))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group(apiPrefix)
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET(streamPath, cfg.RealtimeHandler.SSEStream)
		}

		// Me
		if cfg.ProfileHandler != nil {
			api.GET("/me/profile", cfg.ProfileHandler.GetProfile)
			api.GET("/me/videos", cfg.ProfileHandler.ListVideos)
		}

		// Viewing sessions
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.Open)
			api.GET("/sessions/:id", cfg.SessionHandler.Get)
			api.DELETE("/sessions/:id", cfg.SessionHandler.Close)
			api.POST("/sessions/:id/duration", cfg.SessionHandler.SetDuration)
			api.POST("/sessions/:id/playback", cfg.SessionHandler.SetPlayback)
			api.POST("/sessions/:id/progress", cfg.SessionHandler.ReportProgress)
			api.GET("/sessions/:id/quiz", cfg.SessionHandler.Quiz)
			api.POST("/sessions/:id/answer", cfg.SessionHandler.SubmitAnswer)
			api.POST("/sessions/:id/advance", cfg.SessionHandler.Advance)
			api.POST("/sessions/:id/retry", cfg.SessionHandler.Retry)
			api.POST("/sessions/:id/rewatch", cfg.SessionHandler.Rewatch)
		}
	}

	return r
}
