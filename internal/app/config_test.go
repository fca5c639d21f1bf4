package app

import (
	"reflect"
	"testing"
	"time"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

func TestSplitList(t *testing.T) {
	got := splitList(" http://a.test, ,http://b.test ,")
	want := []string{"http://a.test", "http://b.test"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitList=%v, want %v", got, want)
	}
	if got := splitList(""); got != nil {
		t.Fatalf("empty input gave %v", got)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DOTENV_PATH", t.TempDir()+"/missing.env")
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SEGMENT_LENGTH_SECONDS", "-3")
	t.Setenv("QUIZ_WAIT_TIMEOUT", "4")
	t.Setenv("CORS_ORIGINS", "http://app.test")

	cfg := LoadConfig(logger.Nop())
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.SegmentLength != 120 {
		t.Fatalf("SegmentLength=%v, want default", cfg.SegmentLength)
	}
	if cfg.QuizWait != 4*time.Second {
		t.Fatalf("QuizWait=%v", cfg.QuizWait)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://app.test" {
		t.Fatalf("CORSOrigins=%v", cfg.CORSOrigins)
	}
}
