package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/learnquest-backend/internal/platform/httpx"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

var testSchema = map[string]any{"type": "object"}

func outputText(text string) map[string]any {
	return map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, retries int, temp *float64) Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		APIKey:          "sk-test",
		BaseURL:         srv.URL,
		Model:           "test-model",
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		MaxOutputTokens: 500,
		Temperature:     temp,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

func TestGenerateJSONSendsBoundedStructuredRequest(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth=%q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(outputText(`{"questions":[]}`))
	}))
	defer srv.Close()

	obj, err := newTestClient(t, srv, 0, nil).GenerateJSON(context.Background(), "sys", "user", "quiz", testSchema)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if _, ok := obj["questions"]; !ok {
		t.Fatalf("missing questions key in %v", obj)
	}
	if got.MaxOutputTokens != 500 {
		t.Fatalf("max_output_tokens=%d, want 500", got.MaxOutputTokens)
	}
	if got.Text.Format["type"] != "json_schema" || got.Text.Format["name"] != "quiz" {
		t.Fatalf("format=%v", got.Text.Format)
	}
	if len(got.Input) != 2 || got.Input[0].Role != "system" || got.Input[1].Content != "user" {
		t.Fatalf("input=%v", got.Input)
	}
}

func TestGenerateJSONSingleAttemptOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0, nil).GenerateJSON(context.Background(), "s", "u", "quiz", testSchema)
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err=%v, want StatusError 503", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls=%d, want 1", n)
	}
}

func TestGenerateJSONMalformedOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(outputText(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0, nil).GenerateJSON(context.Background(), "s", "u", "quiz", testSchema)
	if err == nil || !strings.Contains(err.Error(), "parse model JSON") {
		t.Fatalf("err=%v, want parse failure", err)
	}
}

func TestGenerateJSONDropsRejectedTemperature(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if n == 1 {
			if req.Temperature == nil {
				t.Errorf("first call should carry temperature")
			}
			http.Error(w, `{"error":{"message":"Unsupported parameter: 'temperature'"}}`, http.StatusBadRequest)
			return
		}
		if req.Temperature != nil {
			t.Errorf("second call should omit temperature")
		}
		_ = json.NewEncoder(w).Encode(outputText(`{"ok":true}`))
	}))
	defer srv.Close()

	temp := 0.7
	if _, err := newTestClient(t, srv, 0, &temp).GenerateJSON(context.Background(), "s", "u", "quiz", testSchema); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls=%d, want 2", n)
	}
}
