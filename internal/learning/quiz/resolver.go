package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

// Source records where a resolved question came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

type Result struct {
	Question Question
	Source   Source
	Topic    string
}

type ResolverConfig struct {
	// Generator is optional; nil means fallback only.
	Generator Generator
	// Bank defaults to the embedded bank.
	Bank *Bank
	// Cache is optional and only holds remote results.
	Cache Cache
	// Seed for the template picker. Zero seeds from the clock.
	Seed int64
}

// Resolver returns exactly one well-formed question for any transcript.
type Resolver struct {
	log     *logger.Logger
	gen     Generator
	bank    *Bank
	matcher *Matcher
	cache   Cache
	group   singleflight.Group

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewResolver(log *logger.Logger, cfg ResolverConfig) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	bank := cfg.Bank
	if bank == nil {
		bank = DefaultBank()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Resolver{
		log:     log.With("service", "QuizResolver"),
		gen:     cfg.Generator,
		bank:    bank,
		matcher: NewMatcher(bank),
		cache:   cfg.Cache,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, transcript string) Question {
	return r.ResolveResult(ctx, transcript).Question
}

func (r *Resolver) ResolveResult(ctx context.Context, transcript string) Result {
	ctx, span := otel.Tracer("learnquest/quiz").Start(ctx, "quiz.resolve")
	defer span.End()

	if r.gen != nil {
		if q, ok := r.remote(ctx, transcript); ok {
			span.SetAttributes(attribute.String("quiz.source", string(SourceRemote)))
			return Result{Question: q, Source: SourceRemote}
		}
	}
	res := r.Fallback(transcript)
	span.SetAttributes(
		attribute.String("quiz.source", string(SourceFallback)),
		attribute.String("quiz.topic", res.Topic),
	)
	return res
}

func (r *Resolver) remote(ctx context.Context, transcript string) (Question, bool) {
	key := TranscriptKey(transcript)
	if r.cache != nil {
		q, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn("Quiz cache read failed", "error", err)
		} else if ok {
			return q, true
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		q, err := r.gen.Generate(ctx, transcript)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if cerr := r.cache.Set(ctx, key, q); cerr != nil {
				r.log.Warn("Quiz cache write failed", "error", cerr)
			}
		}
		return q, nil
	})
	if err != nil {
		r.log.Warn("Remote quiz generation failed, using fallback", "transcript", transcript, "error", err)
		return Question{}, false
	}
	return v.(Question).Clone(), true
}

// Fallback draws a template for the transcript's topic from the bank.
func (r *Resolver) Fallback(transcript string) Result {
	topic := r.matcher.Match(transcript)
	templates := topic.Templates
	if len(templates) == 0 {
		templates = r.bank.Default.Templates
	}
	r.rngMu.Lock()
	i := r.rng.Intn(len(templates))
	r.rngMu.Unlock()
	return Result{
		Question: templates[i].withTopic(topic.Name),
		Source:   SourceFallback,
		Topic:    topic.Name,
	}
}
