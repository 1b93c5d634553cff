package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1>trending</h1></body></html>`))
	}))
	defer server.Close()

	engine := NewEngine(server.Client(), Options{MaxRetryCount: 3, RetryDelaySeconds: 1}, nil, "test", nil)

	var slept []time.Duration
	engine.sleep = func(d time.Duration) { slept = append(slept, d) }

	doc, err := engine.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "trending" {
		t.Fatalf("unexpected document content: %q", got)
	}

	log := engine.ErrorLog()
	if len(log) != 2 {
		t.Fatalf("expected 2 logged attempts, got %d", len(log))
	}
	if log[0].Attempt != 1 || log[1].Attempt != 2 {
		t.Fatalf("unexpected attempt numbers: %+v", log)
	}
	if log[0].StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected logged status: %d", log[0].StatusCode)
	}
	if len(slept) != 2 || slept[0] != time.Second {
		t.Fatalf("unexpected retry delays: %v", slept)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := NewEngine(server.Client(), Options{MaxRetryCount: 3}, nil, "test", nil)
	engine.sleep = func(time.Duration) {}

	_, err := engine.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	var scrapeErr *ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("expected *ScrapeError, got %T: %v", err, err)
	}
	if scrapeErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected last status: %d", scrapeErr.StatusCode)
	}
	if scrapeErr.Attempts != 3 {
		t.Fatalf("unexpected attempt count: %d", scrapeErr.Attempts)
	}
	if len(engine.ErrorLog()) != 3 {
		t.Fatalf("expected 3 logged attempts, got %d", len(engine.ErrorLog()))
	}
}

func TestFetchAppliesHeadersAndTracksResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") != "ja" {
			t.Errorf("missing custom header, got %q", r.Header.Get("Accept-Language"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer server.Close()

	opts := Options{Headers: map[string]string{"Accept-Language": "ja"}}
	engine := NewEngine(server.Client(), opts, nil, "test", nil)

	if _, err := engine.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	last := engine.LastResponse()
	if last == nil || last.StatusCode != http.StatusOK {
		t.Fatalf("unexpected last response: %+v", last)
	}
	if len(last.Body) == 0 {
		t.Fatal("expected last response body to be retained")
	}
}

func TestResetClearsRunState(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	engine := NewEngine(server.Client(), Options{MaxRetryCount: 1}, nil, "test", nil)
	engine.sleep = func(time.Duration) {}

	_, _ = engine.Fetch(context.Background(), server.URL)
	if len(engine.ErrorLog()) == 0 {
		t.Fatal("expected logged attempts before reset")
	}

	engine.Reset()
	if len(engine.ErrorLog()) != 0 {
		t.Fatal("expected empty error log after reset")
	}
	if engine.LastResponse() != nil {
		t.Fatal("expected cleared last response after reset")
	}
}
