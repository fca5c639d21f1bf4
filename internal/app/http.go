package app

import (
	"context"

	httpapi "github.com/yungbote/learnquest-backend/internal/http"
	httpH "github.com/yungbote/learnquest-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnquest-backend/internal/http/middleware"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Session  *httpH.SessionHandler
	Profile  *httpH.ProfileHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, sseHub *sse.SSEHub, ping func(ctx context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(ping),
		Session:  httpH.NewSessionHandler(log, services.Session, cfg.QuizWait),
		Profile:  httpH.NewProfileHandler(log, services.Progress, services.VideoProgress),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *httpapi.Server {
	return httpapi.NewServer(cfg.HTTPAddr, httpapi.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		SessionHandler:  handlers.Session,
		ProfileHandler:  handlers.Profile,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
