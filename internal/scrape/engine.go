package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"InfluenceRanker/internal/ports"
)

const defaultUserAgent = "InfluenceRanker/1.0"

// Options configures an Engine's fetch policy.
type Options struct {
	TimeoutSeconds    int
	MaxRetryCount     int
	RetryDelaySeconds int
	Headers           map[string]string
}

func (o Options) timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o Options) retries() int {
	if o.MaxRetryCount <= 0 {
		return 3
	}
	return o.MaxRetryCount
}

func (o Options) retryDelay() time.Duration {
	if o.RetryDelaySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(o.RetryDelaySeconds) * time.Second
}

// AttemptError records one failed fetch attempt in the engine's error log.
type AttemptError struct {
	URL        string
	Attempt    int
	StatusCode int
	Message    string
	At         time.Time
}

// ResponseMeta keeps the last response observed by the engine.
type ResponseMeta struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ScrapeError is returned after all retry attempts are exhausted.
// StatusCode carries the last HTTP status (zero on transport failure).
type ScrapeError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s failed after %d attempts (last status %d): %v",
		e.URL, e.Attempts, e.StatusCode, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Engine is the shared fetch-and-parse core used by all platform adapters.
// Each adapter owns its own instance: the error log, last-response metadata
// and rate-limit key are per-instance state.
type Engine struct {
	client     *http.Client
	opts       Options
	limiter    ports.RateLimiter
	limiterKey string
	logger     *slog.Logger
	sleep      func(time.Duration)
	now        func() time.Time

	mu       sync.Mutex
	errorLog []AttemptError
	last     *ResponseMeta
}

// NewEngine wires an HTTP client, fetch options and a rate limiter.
// A nil client gets a default with the configured timeout.
func NewEngine(client *http.Client, opts Options, limiter ports.RateLimiter, limiterKey string, logger *slog.Logger) *Engine {
	if client == nil {
		client = &http.Client{Timeout: opts.timeout()}
	}
	return &Engine{
		client:     client,
		opts:       opts,
		limiter:    limiter,
		limiterKey: limiterKey,
		logger:     logger,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Reset clears the error log and last-response metadata. Adapters call it
// at the start of each scrape so the log describes a single run.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorLog = nil
	e.last = nil
}

// ErrorLog returns a copy of the failed attempts recorded since Reset.
func (e *Engine) ErrorLog() []AttemptError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]AttemptError, len(e.errorLog))
	copy(out, e.errorLog)
	return out
}

// LastResponse returns metadata of the most recent response, nil before
// any request completed.
func (e *Engine) LastResponse() *ResponseMeta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Fetch retrieves a URL with the engine's default timeout and parses the
// body into a goquery document.
func (e *Engine) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	return e.FetchWithTimeout(ctx, url, e.opts.timeout())
}

// FetchWithTimeout is Fetch with a per-call timeout override. Every failed
// attempt (non-2xx or transport error) is logged and retried after the
// configured delay; exhausting retries yields a *ScrapeError.
func (e *Engine) FetchWithTimeout(ctx context.Context, url string, timeout time.Duration) (*goquery.Document, error) {
	attempts := e.opts.retries()

	var (
		lastStatus int
		lastErr    error
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Acquire(ctx, e.limiterKey); err != nil {
				return nil, fmt.Errorf("rate limit %s: %w", e.limiterKey, err)
			}
		}

		doc, status, err := e.fetchOnce(ctx, url, timeout)
		if err == nil {
			return doc, nil
		}

		lastStatus = status
		lastErr = err
		e.recordAttempt(url, attempt, status, err)

		if e.logger != nil {
			e.logger.Warn("fetch attempt failed",
				"url", url, "attempt", attempt, "status", status, "error", err)
		}

		if attempt < attempts {
			e.sleep(e.opts.retryDelay())
		}
	}

	return nil, &ScrapeError{URL: url, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

func (e *Engine) fetchOnce(ctx context.Context, url string, timeout time.Duration) (*goquery.Document, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for name, value := range e.opts.Headers {
		req.Header.Set(name, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	e.mu.Lock()
	e.last = &ResponseMeta{StatusCode: resp.StatusCode, Headers: resp.Header.Clone(), Body: body}
	e.mu.Unlock()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse document: %w", err)
	}

	return doc, resp.StatusCode, nil
}

func (e *Engine) recordAttempt(url string, attempt, status int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorLog = append(e.errorLog, AttemptError{
		URL:        url,
		Attempt:    attempt,
		StatusCode: status,
		Message:    err.Error(),
		At:         e.now(),
	})
}
