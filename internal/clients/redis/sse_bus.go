package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

// busEnvelope is the pub/sub payload. SentAt lets receivers log delivery lag.
type busEnvelope struct {
	SentAt  time.Time      `json:"sent_at"`
	Message sse.SSEMessage `json:"message"`
}

type sseBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string

	mu   sync.Mutex
	subs []*goredis.PubSub
}

// NewSSEBus publishes SSE messages on a redis pub/sub channel so every
// server instance can deliver them to its own streams.
func NewSSEBus(log *logger.Logger, rdb *goredis.Client, channel string) (sse.Bus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		channel = "sse"
	}
	return &sseBus{
		log:     log.With("service", "RedisSSEBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *sseBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	raw, err := json.Marshal(busEnvelope{SentAt: time.Now().UTC(), Message: msg})
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and hands every message to onMsg until ctx ends
// or the bus is closed. It returns once the subscription is confirmed.
func (b *sseBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *sseBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m sse.SSEMessage)) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				b.log.Warn("Dropping bad SSE bus payload", "error", err)
				continue
			}
			if lag := time.Since(env.SentAt); !env.SentAt.IsZero() && lag > 2*time.Second {
				b.log.Debug("Slow SSE bus delivery", "event", string(env.Message.Event), "lag", lag.String())
			}
			onMsg(env.Message)
		}
	}
}

// Close ends every forwarder. The redis client itself belongs to the caller.
func (b *sseBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}
