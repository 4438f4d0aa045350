// Package ratelimit provides fixed-window request limiting keyed by client
// and endpoint.
//
// Counters live in a pluggable CounterStore (Redis in production, in-memory
// for tests and single-instance deployments). Store failures never block
// traffic: the limiter fails open and logs the error.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy describes one fixed window: at most Limit requests per Window.
type Policy struct {
	Limit  int64
	Window time.Duration
}

// Decision is the outcome of an Admit call.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// RetryAfter is how long the client should wait before retrying.
	// Zero when Allowed is true.
	RetryAfter time.Duration
	// Remaining is the number of requests left in the current window.
	Remaining int64
}

// CounterStore increments a counter and reports its value and remaining window.
type CounterStore interface {
	// Incr increments the counter for key, starting a window of the given
	// duration on first increment, and returns the new count together with
	// the time left until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Limiter applies per-endpoint policies on top of a CounterStore.
type Limiter struct {
	store    CounterStore
	policies map[string]Policy
}

// NewLimiter constructs a Limiter with the given policies, keyed by endpoint
// name (for example "send-otp").
func NewLimiter(store CounterStore, policies map[string]Policy) *Limiter {
	return &Limiter{store: store, policies: policies}
}

// Admit decides whether a request from clientKey against endpoint may
// proceed.
//
// Endpoints without a configured policy are always admitted. When the
// backing store errors, the request is admitted as well so that a degraded
// Redis never turns into an outage.
func (l *Limiter) Admit(ctx context.Context, clientKey, endpoint string) Decision {
	policy, ok := l.policies[endpoint]
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return Decision{Allowed: true}
	}

	key := fmt.Sprintf("ratelimit:%s:%s", endpoint, clientKey)

	count, resetIn, err := l.store.Incr(ctx, key, policy.Window)
	if err != nil {
		slog.WarnContext(ctx, "rate limit store unavailable, admitting request",
			"endpoint", endpoint, "err", err)
		return Decision{Allowed: true}
	}

	if resetIn <= 0 {
		resetIn = policy.Window
	}

	if count > policy.Limit {
		return Decision{Allowed: false, RetryAfter: resetIn}
	}

	return Decision{Allowed: true, Remaining: policy.Limit - count}
}
