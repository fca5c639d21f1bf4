package sse

import (
	"context"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

// Bus fans messages out across server instances.
type Bus interface {
	Publish(ctx context.Context, msg SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m SSEMessage)) error
	Close() error
}

// Emitter delivers a message to every stream subscribed to its channel.
type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

type emitter struct {
	log *logger.Logger
	hub *SSEHub
	bus Bus
}

// NewEmitter publishes through bus when one is configured (every instance
// forwards bus messages into its own hub), otherwise straight to hub.
func NewEmitter(log *logger.Logger, hub *SSEHub, bus Bus) Emitter {
	return &emitter{log: log.With("component", "SSEEmitter"), hub: hub, bus: bus}
}

func (e *emitter) Emit(ctx context.Context, msg SSEMessage) {
	if e.bus != nil {
		err := e.bus.Publish(ctx, msg)
		if err == nil {
			return
		}
		e.log.Warn("SSE bus publish failed, delivering locally", "event", string(msg.Event), "error", err)
	}
	e.hub.Broadcast(msg)
}
