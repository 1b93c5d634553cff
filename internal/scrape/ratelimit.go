package scrape

import (
	"context"
	"sync"
	"time"

	"InfluenceRanker/internal/ports"
)

// SlidingWindow is a best-effort single-process rate limiter: at most
// `limit` acquisitions per key inside a rolling window. When the limit is
// reached, Acquire blocks the caller until the window elapses; that
// backpressure is what keeps adapters polite toward the platforms.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time
	sleep  func(time.Duration)

	mu     sync.Mutex
	starts map[string]time.Time
	counts map[string]int
}

var _ ports.RateLimiter = (*SlidingWindow)(nil)

// NewSlidingWindow builds a limiter allowing `limit` requests per minute.
// A non-positive limit disables throttling.
func NewSlidingWindow(limit int) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
		sleep:  time.Sleep,
		starts: map[string]time.Time{},
		counts: map[string]int{},
	}
}

// Acquire reserves one request slot for the key, blocking while the
// current window is exhausted.
func (w *SlidingWindow) Acquire(ctx context.Context, key string) error {
	if w.limit <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	start, ok := w.starts[key]
	if !ok || now.Sub(start) >= w.window {
		w.starts[key] = now
		w.counts[key] = 0
		start = now
	}

	if w.counts[key] >= w.limit {
		wait := start.Add(w.window).Sub(now)
		w.mu.Unlock()
		w.sleep(wait)
		w.mu.Lock()

		w.starts[key] = w.now()
		w.counts[key] = 0
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	w.counts[key]++
	return nil
}
