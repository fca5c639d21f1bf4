package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnquest-backend/internal/http/response"
	"github.com/yungbote/learnquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/services"
)

type ProfileHandler struct {
	log      *logger.Logger
	progress services.ProgressService
	videos   services.VideoProgressService
}

func NewProfileHandler(log *logger.Logger, progress services.ProgressService, videos services.VideoProgressService) *ProfileHandler {
	return &ProfileHandler{
		log:      log.With("handler", "ProfileHandler"),
		progress: progress,
		videos:   videos,
	}
}

// GET /api/me/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.progress.GetProfile(ctx, ctxutil.UserID(ctx))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// GET /api/me/videos
func (h *ProfileHandler) ListVideos(c *gin.Context) {
	ctx := c.Request.Context()
	rows, err := h.videos.ListForUser(ctx, ctxutil.UserID(ctx))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"videos": rows})
}
