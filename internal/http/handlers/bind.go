package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/learnquest-backend/internal/platform/apierr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON decodes the body into dst and checks its validate tags.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err))
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apierr.BadRequest("invalid_input", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return apierr.BadRequest("invalid_input", fmt.Errorf("invalid fields: %s", strings.Join(fields, ", ")))
	}
	return nil
}
