package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerRunsAndStops(t *testing.T) {
	t.Parallel()

	ticker := NewTicker("test", 10*time.Millisecond, time.UTC, nil)
	var ticks atomic.Int64

	if err := ticker.Start(context.Background(), func(time.Time) { ticks.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ticker.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("second Start must fail")
	}

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("ticker never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ticker.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatal("ticker kept firing after Stop")
	}
}

func TestTickerRejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	ticker := NewTicker("test", 0, time.UTC, nil)
	if err := ticker.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
