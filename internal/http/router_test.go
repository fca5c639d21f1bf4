package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	httpH "github.com/yungbote/learnquest-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnquest-backend/internal/http/middleware"
	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/reward"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
	"github.com/yungbote/learnquest-backend/internal/services"
	"github.com/yungbote/learnquest-backend/internal/sse"
	"github.com/yungbote/learnquest-backend/internal/types"
)

type testAPI struct {
	engine *gin.Engine
	token  string
	mu     sync.Mutex
	xp     int
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&types.UserProfile{}, &types.VideoProgress{}, &types.SegmentQuiz{}, &types.VideoTranscript{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := logger.Nop()
	hub := sse.NewSSEHub(log)
	emitter := sse.NewEmitter(log, hub, nil)
	api := &testAPI{}

	progress := services.NewProgressService(db, log, repos.NewUserProfileRepo(db, log), emitter)
	videos := services.NewVideoProgressService(db, log, repos.NewVideoProgressRepo(db, log))
	quizzes := services.NewSegmentQuizService(log, repos.NewSegmentQuizRepo(db, log), quiz.NewResolver(log, quiz.ResolverConfig{Seed: 3}))
	sink := reward.SinkFunc(func(r reward.Reward) {
		api.mu.Lock()
		api.xp += r.XPEarned
		api.mu.Unlock()
	})
	sessions := services.NewSessionService(log, services.SessionConfig{}, quizzes, nil, videos, sink, emitter)
	t.Cleanup(sessions.CloseAll)

	auth, err := services.NewAuthService(log, "router-secret")
	if err != nil {
		t.Fatal(err)
	}
	api.token, _ = auth.IssueToken(uuid.New(), time.Hour)
	api.engine = NewRouter(RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		SessionHandler:  httpH.NewSessionHandler(log, sessions, 2*time.Second),
		ProfileHandler:  httpH.NewProfileHandler(log, progress, videos),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		HealthHandler:   httpH.NewHealthHandler(func(ctx context.Context) error { return sqlDB.PingContext(ctx) }),
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func commandTypes(body map[string]any) []string {
	raw, _ := body["commands"].([]any)
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		m, _ := c.(map[string]any)
		typ, _ := m["type"].(string)
		out = append(out, typ)
	}
	return out
}

func state(body map[string]any) map[string]any {
	st, _ := body["state"].(map[string]any)
	return st
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(t, nethttp.MethodPost, "/api/sessions", map[string]any{
		"video_id": "vid-1", "title": "Intro to React", "duration_seconds": 250,
	})
	if code != nethttp.StatusCreated {
		t.Fatalf("open status=%d body=%v", code, body)
	}
	id, _ := body["session_id"].(string)
	base := "/api/sessions/" + id
	if st := state(body); st["total_segments"] != float64(3) || st["phase"] != "watching" {
		t.Fatalf("state=%v", st)
	}

	code, body = api.do(t, nethttp.MethodPost, base+"/advance", nil)
	if code != nethttp.StatusConflict || errorCode(body) != "not_passed" {
		t.Fatalf("early advance status=%d body=%v", code, body)
	}
	code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{"current_time": -1})
	if code != nethttp.StatusBadRequest || errorCode(body) != "invalid_input" {
		t.Fatalf("negative progress status=%d body=%v", code, body)
	}
	code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{})
	if code != nethttp.StatusBadRequest {
		t.Fatalf("missing current_time status=%d", code)
	}

	code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{"current_time": 120})
	if code != nethttp.StatusOK || state(body)["phase"] != "awaiting_answer" {
		t.Fatalf("boundary status=%d body=%v", code, body)
	}
	if cmds := commandTypes(body); len(cmds) != 1 || cmds[0] != "pause" {
		t.Fatalf("commands=%v", cmds)
	}

	code, body = api.do(t, nethttp.MethodGet, base+"/quiz", nil)
	if code != nethttp.StatusOK {
		t.Fatalf("quiz status=%d body=%v", code, body)
	}
	if opts, _ := body["options"].([]any); len(opts) != quiz.OptionCount {
		t.Fatalf("options=%v", body["options"])
	}
	if _, leaked := body["correct_answer"]; leaked {
		t.Fatalf("quiz view leaks the answer: %v", body)
	}

	code, body = api.do(t, nethttp.MethodPost, base+"/answer", map[string]any{"option": 7})
	if code != nethttp.StatusBadRequest {
		t.Fatalf("out of range option status=%d", code)
	}
	code, body = api.do(t, nethttp.MethodPost, base+"/answer", map[string]any{"option": 0})
	if code != nethttp.StatusOK {
		t.Fatalf("answer status=%d body=%v", code, body)
	}
	if body["explanation"] == "" {
		t.Fatalf("explanation missing")
	}
	if correct, _ := body["correct"].(bool); !correct {
		right := body["correct_option"]
		if code, body = api.do(t, nethttp.MethodPost, base+"/retry", nil); code != nethttp.StatusOK {
			t.Fatalf("retry status=%d body=%v", code, body)
		}
		code, body = api.do(t, nethttp.MethodPost, base+"/answer", map[string]any{"option": right})
		if correct, _ := body["correct"].(bool); code != nethttp.StatusOK || !correct {
			t.Fatalf("second answer status=%d body=%v", code, body)
		}
	}

	code, body = api.do(t, nethttp.MethodPost, base+"/advance", nil)
	if code != nethttp.StatusOK {
		t.Fatalf("advance status=%d body=%v", code, body)
	}
	if cmds := commandTypes(body); len(cmds) != 2 || cmds[0] != "seek" || cmds[1] != "play" {
		t.Fatalf("advance commands=%v", cmds)
	}
	if st := state(body); st["current_segment"] != float64(1) || st["completion_percent"] != float64(33) {
		t.Fatalf("state=%v", st)
	}
	api.mu.Lock()
	xp := api.xp
	api.mu.Unlock()
	if xp != 25 {
		t.Fatalf("xp=%d", xp)
	}

	code, body = api.do(t, nethttp.MethodGet, "/api/me/videos", nil)
	if videos, _ := body["videos"].([]any); code != nethttp.StatusOK || len(videos) != 1 {
		t.Fatalf("videos status=%d body=%v", code, body)
	}

	if code, _ = api.do(t, nethttp.MethodDelete, base, nil); code != nethttp.StatusOK {
		t.Fatalf("close status=%d", code)
	}
	code, body = api.do(t, nethttp.MethodGet, base, nil)
	if code != nethttp.StatusNotFound || errorCode(body) != "session_not_found" {
		t.Fatalf("closed session status=%d body=%v", code, body)
	}
}

func TestProgressBeforeRewatchSeekIgnored(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(t, nethttp.MethodPost, "/api/sessions", map[string]any{
		"video_id": "vid-1", "duration_seconds": 1e15,
	})
	if code != nethttp.StatusBadRequest {
		t.Fatalf("oversized open status=%d body=%v", code, body)
	}
	code, body = api.do(t, nethttp.MethodPost, "/api/sessions", map[string]any{"video_id": "vid-1"})
	if code != nethttp.StatusCreated {
		t.Fatalf("open status=%d body=%v", code, body)
	}
	base := "/api/sessions/" + body["session_id"].(string)
	code, body = api.do(t, nethttp.MethodPost, base+"/duration", map[string]any{"duration_seconds": 1e15})
	if code != nethttp.StatusBadRequest {
		t.Fatalf("oversized duration status=%d body=%v", code, body)
	}
	if code, body = api.do(t, nethttp.MethodPost, base+"/duration", map[string]any{"duration_seconds": 250}); code != nethttp.StatusOK {
		t.Fatalf("duration status=%d body=%v", code, body)
	}

	// pause is seq 1, the rewatch seek and play are 2 and 3
	if code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{"current_time": 120, "seq": 0}); code != nethttp.StatusOK {
		t.Fatalf("boundary status=%d body=%v", code, body)
	}
	if code, body = api.do(t, nethttp.MethodPost, base+"/rewatch", nil); code != nethttp.StatusOK {
		t.Fatalf("rewatch status=%d body=%v", code, body)
	}

	code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{"current_time": 120, "seq": 1})
	if code != nethttp.StatusOK || state(body)["phase"] != "watching" {
		t.Fatalf("stale report status=%d body=%v", code, body)
	}
	code, body = api.do(t, nethttp.MethodPost, base+"/progress", map[string]any{"current_time": 120, "seq": 3})
	if code != nethttp.StatusOK || state(body)["phase"] != "awaiting_answer" {
		t.Fatalf("fresh report status=%d body=%v", code, body)
	}
}

func TestRouterRejectsAnonymousAndBadIDs(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/me/profile", nil)
	rec := httptest.NewRecorder()
	api.engine.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", rec.Code)
	}

	code, body := api.do(t, nethttp.MethodGet, "/api/sessions/not-a-uuid", nil)
	if code != nethttp.StatusNotFound {
		t.Fatalf("bad id status=%d body=%v", code, body)
	}
	code, body = api.do(t, nethttp.MethodPost, "/api/sessions", map[string]any{"title": "no id"})
	if code != nethttp.StatusBadRequest || errorCode(body) != "invalid_input" {
		t.Fatalf("missing video id status=%d body=%v", code, body)
	}

	code, body = api.do(t, nethttp.MethodGet, "/api/me/profile", nil)
	profile, _ := body["profile"].(map[string]any)
	if code != nethttp.StatusOK || profile["level"] != float64(1) {
		t.Fatalf("profile status=%d body=%v", code, body)
	}
}

func TestHealthRoutes(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthcheck", "/readyz"} {
		rec := httptest.NewRecorder()
		api.engine.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, path, nil))
		if rec.Code != nethttp.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}
}
