package app

import (
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnquest-backend/internal/clients/redis"
	"github.com/yungbote/learnquest-backend/internal/platform/gcp"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/platform/openai"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

// Clients holds the optional external connections. Any field may be nil.
type Clients struct {
	Redis    *goredis.Client
	SSEBus   sse.Bus
	OpenAI   openai.Client
	GcpVideo gcp.Video
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis client: %w", err)
		}
		bus, err := redis.NewSSEBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		c.Redis = rdb
		c.SSEBus = bus
	} else {
		log.Info("REDIS_ADDR not set, using in-process SSE delivery and quiz cache")
	}

	// Openai
	oa, err := openai.NewClient(log, cfg.OpenAI)
	switch {
	case err == nil:
		c.OpenAI = oa
	case errors.Is(err, openai.ErrNotConfigured):
		log.Info("OPENAI_API_KEY not set, quizzes come from the local bank")
	default:
		c.Close()
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Gcp
	if cfg.TranscribeEnabled {
		video, err := gcp.NewVideo(log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init video client: %w", err)
		}
		c.GcpVideo = video
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.GcpVideo != nil {
		_ = c.GcpVideo.Close()
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
