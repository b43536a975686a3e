package notion

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is Notion's documented average request budget.
	DefaultRequestsPerSecond = 3.0

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"

	// defaultBackoff is used when a 429 carries no usable Retry-After.
	defaultBackoff = time.Second
)

// RateLimiter throttles requests with a token bucket and pauses everyone
// after the API answers 429.
type RateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	blockUntil time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	until := r.blockUntil
	r.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.bucket.Wait(ctx)
}

// Observe records a response. A 429 blocks further requests until the
// Retry-After deadline.
func (r *RateLimiter) Observe(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}

	backoff := defaultBackoff
	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			backoff = time.Duration(seconds) * time.Second
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(backoff); until.After(r.blockUntil) {
		r.blockUntil = until
	}
}

// BlockedUntil returns the end of the current 429 pause.
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockUntil
}

// transport applies a RateLimiter to every request.
type transport struct {
	base    http.RoundTripper
	limiter *RateLimiter
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.limiter.Observe(resp)
	return resp, nil
}
