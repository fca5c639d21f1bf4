package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnquest-backend/internal/http/response"
	"github.com/yungbote/learnquest-backend/internal/learning/gate"
	"github.com/yungbote/learnquest-backend/internal/platform/apierr"
	"github.com/yungbote/learnquest-backend/internal/services"
)

// toAPIError maps domain errors onto HTTP statuses.
func toAPIError(err error) *apierr.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrInvalidInput), errors.Is(err, services.ErrInvalidSession):
		return apierr.BadRequest("invalid_input", err)
	case errors.Is(err, gate.ErrQuizNotReady):
		return apierr.Conflict("quiz_not_ready", err)
	case errors.Is(err, gate.ErrNotPassed):
		return apierr.Conflict("not_passed", err)
	case errors.Is(err, gate.ErrInvalidTransition):
		return apierr.Conflict("invalid_transition", err)
	case errors.Is(err, gate.ErrClosed):
		return apierr.New(http.StatusGone, "session_closed", err)
	case errors.Is(err, services.ErrSessionNotFound):
		return apierr.NotFound("session_not_found", err)
	case errors.Is(err, services.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	}
	return apierr.As(err)
}

func respondErr(c *gin.Context, err error) {
	response.RespondAPIError(c, toAPIError(err))
}
