package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

func TestNewSSEBusRequiresClient(t *testing.T) {
	if _, err := NewSSEBus(logger.Nop(), nil, "x"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestSSEBusForwardsMessages(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	log := logger.Nop()
	rdb, err := NewClient(log, Config{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()

	bus, err := NewSSEBus(log, rdb, "learnquest:test:"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewSSEBus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got := make(chan sse.SSEMessage, 1)
	if err := bus.StartForwarder(ctx, func(m sse.SSEMessage) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	user := uuid.New()
	want := sse.SSEMessage{Channel: sse.UserChannel(user), Event: sse.SSEEventQuizReady, Data: map[string]any{"segment_index": 1}}
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Channel != want.Channel || m.Event != want.Event {
			t.Fatalf("got %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("message not forwarded")
	}
}
