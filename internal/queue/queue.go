// Package queue implements a Redis-backed job queue with per-type worker
// loops, exponential-backoff retries, and delayed delivery via sorted sets.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nvh2205/noti-believe/internal/domain"
)

// popTimeout bounds each BRPOP so worker loops notice context cancellation.
const popTimeout = time.Second

// promoteInterval is how often delayed jobs are checked for readiness.
const promoteInterval = 500 * time.Millisecond

// Handler processes one job payload. A non-nil error triggers a retry when
// the job has attempts left.
type Handler func(ctx context.Context, payload json.RawMessage) error

// envelope is the wire form of a queued job.
type envelope struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	MaxAttempts  int             `json:"max_attempts"`
	BackoffMs    int64           `json:"backoff_ms"`
}

// Queue is a Redis-backed job queue. Each job type gets its own list and a
// companion sorted set holding retries scored by their ready time.
type Queue struct {
	rdb         *redis.Client
	logger      *slog.Logger
	handlers    map[string]Handler
	backoffBase time.Duration
}

// New creates a Queue on top of the given go-redis client.
func New(rdb *redis.Client, backoffBase time.Duration, logger *slog.Logger) *Queue {
	return &Queue{
		rdb:         rdb,
		logger:      logger.With(slog.String("component", "queue")),
		handlers:    make(map[string]Handler),
		backoffBase: backoffBase,
	}
}

func listKey(jobType string) string {
	return "queue:" + jobType
}

func delayedKey(jobType string) string {
	return "queue:" + jobType + ":delayed"
}

// Register binds a handler to a job type. Registration must happen before
// Run; it is not safe to call concurrently with Run.
func (q *Queue) Register(jobType string, h Handler) {
	q.handlers[jobType] = h
}

// Enqueue marshals payload and pushes a new job of jobType onto its list.
// Attempts below 1 are treated as a single attempt.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any, opts domain.JobOptions) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshaling %s payload: %w", jobType, err)
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = q.backoffBase
	}

	env := envelope{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     body,
		MaxAttempts: attempts,
		BackoffMs:   backoff.Milliseconds(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshaling %s envelope: %w", jobType, err)
	}

	if err := q.rdb.LPush(ctx, listKey(jobType), raw).Err(); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", jobType, err)
	}

	q.logger.Debug("job enqueued",
		slog.String("job_id", env.ID),
		slog.String("type", jobType),
		slog.Int("max_attempts", attempts),
	)
	return nil
}

// Run starts one worker loop and one delayed-job promoter per registered
// job type and blocks until ctx is cancelled. It returns nil on clean
// shutdown.
func (q *Queue) Run(ctx context.Context) error {
	if len(q.handlers) == 0 {
		return domain.ErrNoHandler
	}

	g, ctx := errgroup.WithContext(ctx)

	for jobType, handler := range q.handlers {
		g.Go(func() error {
			err := q.workLoop(ctx, jobType, handler)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("queue: %s worker: %w", jobType, err)
		})
		g.Go(func() error {
			err := q.promoteLoop(ctx, jobType)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("queue: %s promoter: %w", jobType, err)
		})
	}

	if err := g.Wait(); err != nil {
		q.logger.Error("queue stopped with error", slog.String("error", err.Error()))
		return err
	}
	q.logger.Info("queue stopped cleanly")
	return nil
}

// workLoop pops jobs for one type and dispatches them to the handler.
func (q *Queue) workLoop(ctx context.Context, jobType string, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := q.rdb.BRPop(ctx, popTimeout, listKey(jobType)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error("pop failed",
				slog.String("type", jobType),
				slog.String("error", err.Error()),
			)
			time.Sleep(popTimeout)
			continue
		}
		if len(res) != 2 {
			continue
		}

		q.dispatch(ctx, jobType, handler, []byte(res[1]))
	}
}

// dispatch runs the handler for one job and schedules a retry on failure.
func (q *Queue) dispatch(ctx context.Context, jobType string, handler Handler, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		q.logger.Error("dropping malformed job",
			slog.String("type", jobType),
			slog.String("error", err.Error()),
		)
		return
	}

	err := handler(ctx, env.Payload)
	if err == nil {
		q.logger.Debug("job done",
			slog.String("job_id", env.ID),
			slog.String("type", jobType),
			slog.Int("attempt", env.AttemptsMade+1),
		)
		return
	}

	env.AttemptsMade++
	if env.AttemptsMade >= env.MaxAttempts {
		// No dead-letter queue; exhausted jobs are logged and dropped.
		q.logger.Error("job failed permanently",
			slog.String("job_id", env.ID),
			slog.String("type", jobType),
			slog.Int("attempts", env.AttemptsMade),
			slog.String("error", err.Error()),
		)
		return
	}

	delay := time.Duration(env.BackoffMs) * time.Millisecond << (env.AttemptsMade - 1)
	q.logger.Warn("job failed, scheduling retry",
		slog.String("job_id", env.ID),
		slog.String("type", jobType),
		slog.Int("attempt", env.AttemptsMade),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)

	if schedErr := q.scheduleRetry(ctx, env, delay); schedErr != nil {
		q.logger.Error("scheduling retry failed",
			slog.String("job_id", env.ID),
			slog.String("error", schedErr.Error()),
		)
	}
}

// scheduleRetry places the job in the delayed sorted set scored by the wall
// clock time it becomes runnable.
func (q *Queue) scheduleRetry(ctx context.Context, env envelope, delay time.Duration) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshaling retry envelope: %w", err)
	}

	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.rdb.ZAdd(ctx, delayedKey(env.Type), redis.Z{Score: readyAt, Member: raw}).Err(); err != nil {
		return fmt.Errorf("queue: delaying %s job: %w", env.Type, err)
	}
	return nil
}

// promoteLoop moves due jobs from the delayed set back onto the list.
func (q *Queue) promoteLoop(ctx context.Context, jobType string) error {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := q.promoteDue(ctx, jobType); err != nil && ctx.Err() == nil {
				q.logger.Error("promoting delayed jobs failed",
					slog.String("type", jobType),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// promoteDue pushes every delayed job whose ready time has passed back onto
// the work list and removes it from the sorted set.
func (q *Queue) promoteDue(ctx context.Context, jobType string) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	due, err := q.rdb.ZRangeByScore(ctx, delayedKey(jobType), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("queue: reading delayed %s jobs: %w", jobType, err)
	}

	for _, raw := range due {
		removed, err := q.rdb.ZRem(ctx, delayedKey(jobType), raw).Result()
		if err != nil {
			return fmt.Errorf("queue: removing delayed %s job: %w", jobType, err)
		}
		if removed == 0 {
			continue // another worker promoted it first
		}
		if err := q.rdb.LPush(ctx, listKey(jobType), raw).Err(); err != nil {
			return fmt.Errorf("queue: promoting %s job: %w", jobType, err)
		}
	}
	return nil
}

var _ domain.JobQueue = (*Queue)(nil)
