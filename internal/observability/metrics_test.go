package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveQuizResolution("remote", time.Second)
	m.IncAnswer(true)
	m.IncSegmentCompleted()
	m.IncCourseCompleted()
	m.SetSessionsOpen(3)
	m.IncRewardDelivery("ok")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/sessions/:id/answer", "200", 30*time.Millisecond)
	m.ObserveQuizResolution("fallback", 20*time.Millisecond)
	m.IncAnswer(false)
	m.IncAnswer(true)
	m.IncAnswer(true)
	m.SetSessionsOpen(2)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`learnquest_api_requests_total{method="POST",route="/api/sessions/:id/answer",status="200"} 1.000000`,
		`learnquest_api_request_duration_seconds_bucket{method="POST",route="/api/sessions/:id/answer",status="200",le="0.05"} 1`,
		`learnquest_api_request_duration_seconds_bucket{method="POST",route="/api/sessions/:id/answer",status="200",le="0.025"} 0`,
		`learnquest_quiz_resolutions_total{source="fallback"} 1.000000`,
		`learnquest_quiz_answers_total{correct="true"} 2.000000`,
		`learnquest_sessions_open 2.000000`,
		"# TYPE learnquest_reward_queue_depth gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, `correct="false"`) > strings.Index(out, `correct="true"`) {
		t.Fatalf("label sets should be sorted")
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labels=%s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty")
	}
}

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=abc, broken ,x-team=learn,empty=")
	h := otelHeaders()
	if len(h) != 2 || h["api-key"] != "abc" || h["x-team"] != "learn" {
		t.Fatalf("headers=%v", h)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if otelSampleRatio() != 1 {
		t.Fatalf("ratio should clamp to 1")
	}
}
