package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"InfluenceRanker/internal/ports"
)

// Ticker runs a job at a fixed interval until stopped. Job invocations
// receive the tick time in the configured location.
type Ticker struct {
	name     string
	interval time.Duration
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

var _ ports.Scheduler = (*Ticker)(nil)

func NewTicker(name string, interval time.Duration, location *time.Location, logger *slog.Logger) *Ticker {
	if location == nil {
		location = time.UTC
	}
	return &Ticker{
		name:     name,
		interval: interval,
		location: location,
		logger:   logger,
	}
}

// Start launches the tick loop. The job runs synchronously inside the
// loop, so a slow job delays the next tick instead of piling up.
func (t *Ticker) Start(ctx context.Context, job func(time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("scheduler already started")
	}
	if t.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	t.started = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	if t.logger != nil {
		t.logger.Info("scheduler started", "job", t.name, "interval", t.interval)
	}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case now := <-ticker.C:
				job(now.In(t.location))
			}
		}
	}()
	return nil
}

// Stop signals the loop and waits for it to exit or for ctx to expire.
func (t *Ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	stop, done := t.stop, t.done
	t.started = false
	t.mu.Unlock()

	close(stop)
	select {
	case <-done:
		if t.logger != nil {
			t.logger.Info("scheduler stopped", "job", t.name)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
