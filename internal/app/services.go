package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/reward"
	"github.com/yungbote/learnquest-backend/internal/observability"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/services"
	"github.com/yungbote/learnquest-backend/internal/sse"
)

type Services struct {
	Auth          services.AuthService
	Progress      services.ProgressService
	VideoProgress services.VideoProgressService
	SegmentQuiz   services.SegmentQuizService
	Transcript    services.TranscriptService
	Session       services.SessionService

	Resolver *quiz.Resolver
	Rewards  *reward.Queue
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	clients Clients,
	emitter sse.Emitter,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.JWTSecretKey)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	progress := services.NewProgressService(db, log, reposet.UserProfile, emitter)
	rewards := reward.NewQueue(log, services.InstrumentProgress(progress, metrics), reward.QueueConfig{
		MaxPending:  cfg.RewardMaxQueue,
		MaxAttempts: cfg.RewardAttempts,
	})

	var cache quiz.Cache
	if clients.Redis != nil {
		cache = quiz.NewRedisCache(clients.Redis, "learnquest:quiz:", cfg.QuizCacheTTL)
	} else {
		cache = quiz.NewMemoryCache(cfg.QuizCacheSize)
	}
	var gen quiz.Generator
	if clients.OpenAI != nil {
		gen = quiz.NewRemoteGenerator(log, clients.OpenAI)
	}
	resolver := quiz.NewResolver(log, quiz.ResolverConfig{
		Generator: gen,
		Bank:      quiz.LoadBank(log, cfg.QuizBankPath),
		Cache:     cache,
		Seed:      cfg.QuizSeed,
	})

	videoProgress := services.NewVideoProgressService(db, log, reposet.VideoProgress)
	segmentQuiz := services.NewSegmentQuizService(log, reposet.SegmentQuiz, resolver)
	transcript := services.NewTranscriptService(log, reposet.VideoTranscript, clients.GcpVideo, services.TranscriptConfig{
		LanguageCode: cfg.TranscribeLanguage,
		Timeout:      cfg.TranscribeTimeout,
	})
	session := services.NewSessionService(log, services.SessionConfig{
		SegmentLength:  cfg.SegmentLength,
		IdleTimeout:    cfg.IdleTimeout,
		PersistTimeout: cfg.PersistTimeout,
	}, segmentQuiz, transcript, videoProgress, rewards, emitter)

	return Services{
		Auth:          auth,
		Progress:      progress,
		VideoProgress: videoProgress,
		SegmentQuiz:   segmentQuiz,
		Transcript:    transcript,
		Session:       session,
		Resolver:      resolver,
		Rewards:       rewards,
	}, nil
}
