package reward

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
)

type QueueConfig struct {
	MaxPending      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts is how often one reward is tried before it is dropped.
	MaxAttempts int
	// FlushTimeout bounds the final drain when Run's context ends.
	FlushTimeout time.Duration
}

func (c *QueueConfig) setDefaults() {
	if c.MaxPending <= 0 {
		c.MaxPending = 10000
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 20
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
}

type pending struct {
	seq      uint64
	r        Reward
	attempts int
}

// userRetry holds the backoff of a user whose oldest reward failed.
type userRetry struct {
	bo    *backoff.ExponentialBackOff
	until time.Time
}

// Queue is a Sink that delivers rewards through a ProgressUpdater, in order
// per user. A failed delivery is retried with exponential backoff while
// other users' rewards keep flowing; permanent failures and rewards that
// exhaust MaxAttempts are dropped. The gate never waits on it.
type Queue struct {
	log     *logger.Logger
	updater ProgressUpdater
	cfg     QueueConfig

	mu      sync.Mutex
	items   []pending
	retries map[uuid.UUID]*userRetry
	nextSeq uint64
	notify  chan struct{}
}

func NewQueue(log *logger.Logger, updater ProgressUpdater, cfg QueueConfig) *Queue {
	cfg.setDefaults()
	return &Queue{
		log:     log.With("service", "RewardQueue"),
		updater: updater,
		cfg:     cfg,
		retries: map[uuid.UUID]*userRetry{},
		notify:  make(chan struct{}, 1),
	}
}

func (q *Queue) Deliver(r Reward) {
	if r.IsZero() {
		return
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	q.mu.Lock()
	if len(q.items) >= q.cfg.MaxPending {
		dropped := q.items[0]
		q.items = q.items[1:]
		q.forgetIdleLocked(dropped.r.UserID)
		q.log.Warn("Reward queue full, dropping oldest",
			"user_id", dropped.r.UserID.String(),
			"reason", string(dropped.r.Reason),
			"xp", dropped.r.XPEarned,
		)
	}
	q.nextSeq++
	q.items = append(q.items, pending{seq: q.nextSeq, r: r})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pending reports how many rewards are waiting for delivery.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// next returns the oldest reward of the first user that is neither in skip
// nor backing off at now. A zero now ignores backoff. When nothing is
// eligible, wait is the time until the earliest backoff expires.
func (q *Queue) next(now time.Time, skip map[uuid.UUID]bool) (p pending, wait time.Duration, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var blocked map[uuid.UUID]bool
	for _, it := range q.items {
		uid := it.r.UserID
		if skip[uid] || blocked[uid] {
			continue
		}
		if rt, found := q.retries[uid]; found && !now.IsZero() && now.Before(rt.until) {
			if d := rt.until.Sub(now); wait == 0 || d < wait {
				wait = d
			}
			if blocked == nil {
				blocked = map[uuid.UUID]bool{}
			}
			blocked[uid] = true
			continue
		}
		return it, 0, true
	}
	return pending{}, wait, false
}

// settle removes p, which may already have been dropped by overflow, and
// clears its user's backoff.
func (q *Queue) settle(p pending) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it.seq == p.seq {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	delete(q.retries, p.r.UserID)
}

// retryLater counts a failed attempt on p and backs its user off. It returns
// the attempts so far and the delay before the user's next try.
func (q *Queue) retryLater(p pending, now time.Time) (int, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	attempts := p.attempts + 1
	for i := range q.items {
		if q.items[i].seq == p.seq {
			q.items[i].attempts = attempts
			break
		}
	}
	rt, ok := q.retries[p.r.UserID]
	if !ok {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = q.cfg.InitialInterval
		bo.MaxInterval = q.cfg.MaxInterval
		bo.Reset()
		rt = &userRetry{bo: bo}
		q.retries[p.r.UserID] = rt
	}
	wait := rt.bo.NextBackOff()
	rt.until = now.Add(wait)
	return attempts, wait
}

func (q *Queue) forgetIdleLocked(uid uuid.UUID) {
	for _, it := range q.items {
		if it.r.UserID == uid {
			return
		}
	}
	delete(q.retries, uid)
}

// Run delivers rewards until ctx ends, then makes one bounded best-effort
// flush of whatever is left.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			q.flush()
			return nil
		}
		p, wait, ok := q.next(time.Now(), nil)
		if !ok {
			if !q.idle(ctx, wait) {
				q.flush()
				return nil
			}
			continue
		}

		err := q.send(ctx, p.r)
		switch {
		case err == nil:
			q.settle(p)
		case ctx.Err() != nil:
			q.flush()
			return nil
		case IsPermanent(err):
			q.settle(p)
			q.log.Error("Reward rejected, dropping",
				"user_id", p.r.UserID.String(),
				"reason", string(p.r.Reason),
				"xp", p.r.XPEarned,
				"error", err,
			)
		default:
			attempts, retryIn := q.retryLater(p, time.Now())
			if attempts >= q.cfg.MaxAttempts {
				q.settle(p)
				q.log.Error("Reward delivery gave up, dropping",
					"user_id", p.r.UserID.String(),
					"reason", string(p.r.Reason),
					"xp", p.r.XPEarned,
					"attempts", attempts,
					"error", err,
				)
				continue
			}
			q.log.Warn("Reward delivery failed, will retry",
				"user_id", p.r.UserID.String(),
				"reason", string(p.r.Reason),
				"attempts", attempts,
				"pending", q.Pending(),
				"retry_in", retryIn.String(),
				"error", err,
			)
		}
	}
}

// idle blocks until a reward arrives, wait elapses (when positive) or ctx
// ends. It returns false once ctx is done.
func (q *Queue) idle(ctx context.Context, wait time.Duration) bool {
	var fire <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		fire = timer.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-q.notify:
	case <-fire:
	}
	return true
}

// flush tries every user once more, ignoring backoff. A user's remaining
// rewards are left behind after its first failure.
func (q *Queue) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.FlushTimeout)
	defer cancel()
	failed := map[uuid.UUID]bool{}
	for ctx.Err() == nil {
		p, _, ok := q.next(time.Time{}, failed)
		if !ok {
			break
		}
		err := q.send(ctx, p.r)
		switch {
		case err == nil:
			q.settle(p)
		case IsPermanent(err):
			q.settle(p)
			q.log.Error("Reward rejected, dropping", "user_id", p.r.UserID.String(), "error", err)
		default:
			failed[p.r.UserID] = true
		}
	}
	if n := q.Pending(); n > 0 {
		q.log.Error("Reward flush incomplete, rewards dropped", "pending", n, "failed_users", len(failed))
	}
}

func (q *Queue) send(ctx context.Context, r Reward) error {
	ctx, span := otel.Tracer("learnquest/reward").Start(ctx, "reward.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("reward.reason", string(r.Reason)),
		attribute.Int("reward.xp", r.XPEarned),
	)
	err := q.updater.UpdateProgress(ctx, r.UserID, r.ProblemsSolved, r.StudyMinutes, r.XPEarned)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update progress failed")
	}
	return err
}
