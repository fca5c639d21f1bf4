package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnquest-backend/internal/platform/apierr"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody APIError
	}{
		{name: "mapped", err: apierr.Conflict("not_passed", errors.New("answer first")), wantCode: http.StatusConflict, wantBody: APIError{Message: "answer first", Code: "not_passed"}},
		{name: "internal_hidden", err: errors.New("pq: connection refused"), wantCode: http.StatusInternalServerError, wantBody: APIError{Message: "internal server error", Code: "internal"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondAPIError(c, tc.err)
			if rec.Code != tc.wantCode {
				t.Fatalf("status=%d", rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error != tc.wantBody {
				t.Fatalf("body=%+v", env.Error)
			}
		})
	}
}
