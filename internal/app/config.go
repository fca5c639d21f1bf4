package app

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/learnquest-backend/internal/clients/redis"
	"github.com/yungbote/learnquest-backend/internal/db"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/platform/envutil"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/platform/openai"
)

type Config struct {
	Environment string
	Version     string
	ServiceName string
	HTTPAddr    string
	CORSOrigins []string

	JWTSecretKey string

	DB     db.Config
	Redis  redis.Config
	OpenAI openai.Config

	QuizBankPath   string
	QuizCacheTTL   time.Duration
	QuizCacheSize  int
	QuizSeed       int64
	QuizWait       time.Duration
	SegmentLength  float64
	IdleTimeout    time.Duration
	PersistTimeout time.Duration
	RewardMaxQueue int
	RewardAttempts int

	TranscribeEnabled  bool
	TranscribeLanguage string
	TranscribeTimeout  time.Duration
}

// loadDotEnv reads an optional .env file. Variables already set in the
// process environment win.
func loadDotEnv(log *logger.Logger) {
	path := envutil.String("DOTENV_PATH", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		log.Warn("Could not load dotenv file", "path", path, "error", err)
		return
	}
	log.Info("Loaded dotenv file", "path", path)
}

func LoadConfig(log *logger.Logger) Config {
	loadDotEnv(log)

	port := envutil.String("PORT", "8080")
	cfg := Config{
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "learnquest-api"),
		HTTPAddr:    envutil.String("HTTP_ADDR", ":"+port),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),

		DB: db.ConfigFromEnv(),
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_SSE_CHANNEL", "learnquest:sse"),
		},
		OpenAI: openai.ConfigFromEnv(),

		QuizBankPath:   envutil.String("QUIZ_BANK_PATH", ""),
		QuizCacheTTL:   envutil.Duration("QUIZ_CACHE_TTL", 24*time.Hour),
		QuizCacheSize:  envutil.Int("QUIZ_CACHE_SIZE", 1024),
		QuizSeed:       envutil.Int64("QUIZ_FALLBACK_SEED", 0),
		QuizWait:       envutil.Duration("QUIZ_WAIT_TIMEOUT", 15*time.Second),
		SegmentLength:  envutil.Float("SEGMENT_LENGTH_SECONDS", segment.DefaultLength),
		IdleTimeout:    envutil.Duration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		PersistTimeout: envutil.Duration("PERSIST_TIMEOUT", 5*time.Second),
		RewardMaxQueue: envutil.Int("REWARD_QUEUE_MAX", 10000),
		RewardAttempts: envutil.Int("REWARD_MAX_ATTEMPTS", 20),

		TranscribeEnabled:  envutil.Bool("GCP_TRANSCRIBE_ENABLED", false),
		TranscribeLanguage: envutil.String("GCP_TRANSCRIBE_LANGUAGE", "en-US"),
		TranscribeTimeout:  envutil.Duration("GCP_TRANSCRIBE_TIMEOUT", 30*time.Minute),
	}
	if cfg.SegmentLength <= 0 {
		log.Warn("SEGMENT_LENGTH_SECONDS must be positive, using default", "value", cfg.SegmentLength)
		cfg.SegmentLength = segment.DefaultLength
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
