// Package ratelimit paces outgoing requests with token buckets: one global
// bucket for the whole venue plus optional per-endpoint-class buckets.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting with support for global and per-bucket limits.
type RateLimiter struct {
	global  *rate.Limiter
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	metrics Metrics
}

// Metrics tracks statistics about rate limiter usage.
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64
	waitNanos       atomic.Int64
}

// New creates a limiter allowing requests per period with a burst of
// requests.
func New(requests int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		global:  newLimiter(requests, period),
		buckets: make(map[string]*rate.Limiter),
	}
}

func newLimiter(requests int, period time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(period/time.Duration(max(requests, 1))), max(requests, 1))
}

// Wait blocks until the global bucket and, when one is configured, the named
// bucket both admit a request. An empty bucket name only waits on the global
// bucket.
func (r *RateLimiter) Wait(ctx context.Context, bucket string) error {
	r.metrics.totalRequests.Add(1)
	start := time.Now()

	if err := r.global.Wait(ctx); err != nil {
		r.metrics.deniedRequests.Add(1)
		return err
	}
	if limiter := r.bucket(bucket); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			r.metrics.deniedRequests.Add(1)
			return err
		}
	}

	r.metrics.waitNanos.Add(int64(time.Since(start)))
	r.metrics.allowedRequests.Add(1)
	return nil
}

// Allow reports whether a request may proceed immediately, consuming a
// token from each bucket involved when it does.
func (r *RateLimiter) Allow(bucket string) bool {
	r.metrics.totalRequests.Add(1)

	now := time.Now()
	global := r.global.ReserveN(now, 1)
	if !global.OK() || global.DelayFrom(now) > 0 {
		global.CancelAt(now)
		r.metrics.deniedRequests.Add(1)
		return false
	}
	if limiter := r.bucket(bucket); limiter != nil && !limiter.AllowN(now, 1) {
		global.CancelAt(now)
		r.metrics.deniedRequests.Add(1)
		return false
	}

	r.metrics.allowedRequests.Add(1)
	return true
}

func (r *RateLimiter) bucket(name string) *rate.Limiter {
	if name == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buckets[name]
}

// SetLimit updates the global rate limit to the specified requests per period.
func (r *RateLimiter) SetLimit(requests int, period time.Duration) {
	r.global.SetLimit(rate.Every(period / time.Duration(max(requests, 1))))
	r.global.SetBurst(max(requests, 1))
}

// SetBucketLimit configures, or replaces, the limit of a named bucket.
func (r *RateLimiter) SetBucketLimit(bucket string, requests int, period time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.buckets[bucket]; ok {
		limiter.SetLimit(rate.Every(period / time.Duration(max(requests, 1))))
		limiter.SetBurst(max(requests, 1))
		return
	}
	r.buckets[bucket] = newLimiter(requests, period)
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (r *RateLimiter) Metrics() MetricsSnapshot {
	r.mu.RLock()
	buckets := len(r.buckets)
	r.mu.RUnlock()

	return MetricsSnapshot{
		TotalRequests:   r.metrics.totalRequests.Load(),
		AllowedRequests: r.metrics.allowedRequests.Load(),
		DeniedRequests:  r.metrics.deniedRequests.Load(),
		TotalWait:       time.Duration(r.metrics.waitNanos.Load()),
		BucketCount:     buckets,
	}
}

// MetricsSnapshot is a point-in-time capture of rate limiter statistics.
type MetricsSnapshot struct {
	// TotalRequests is the total number of rate limit checks performed.
	TotalRequests int64
	// AllowedRequests is the number of requests that were allowed.
	AllowedRequests int64
	// DeniedRequests is the number of requests that were denied.
	DeniedRequests int64
	// TotalWait is the accumulated time spent blocked in Wait.
	TotalWait time.Duration
	// BucketCount is the number of configured named buckets.
	BucketCount int
}
