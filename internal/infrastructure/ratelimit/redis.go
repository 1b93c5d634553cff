package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"InfluenceRanker/internal/ports"
)

const keyPrefix = "influenceranker:ratelimit"

// RedisWindow is a fixed-window rate limiter shared across processes.
// Each window is one Redis counter with a TTL; Acquire blocks until the
// key has a free slot in the current window.
type RedisWindow struct {
	client *redis.Client
	limit  int
	window time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ ports.RateLimiter = (*RedisWindow)(nil)

// NewRedisWindow builds a limiter allowing limit acquisitions per key per
// minute. limit <= 0 disables throttling.
func NewRedisWindow(client *redis.Client, limit int) *RedisWindow {
	return &RedisWindow{
		client: client,
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func (r *RedisWindow) Acquire(ctx context.Context, key string) error {
	if r.limit <= 0 {
		return nil
	}

	for {
		now := r.now()
		bucket := now.Unix() / int64(r.window.Seconds())
		windowKey := fmt.Sprintf("%s:%s:%d", keyPrefix, key, bucket)

		pipe := r.client.TxPipeline()
		incr := pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, r.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("rate limit %s: %w", key, err)
		}
		if incr.Val() <= int64(r.limit) {
			return nil
		}

		// Over the limit: wait out the remainder of this window.
		windowEnd := time.Unix((bucket+1)*int64(r.window.Seconds()), 0)
		if err := r.sleep(ctx, windowEnd.Sub(now)); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
