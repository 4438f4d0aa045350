package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLimiter(clk *fakeClock) *Limiter {
	return NewLimiter(NewMemoryStore(clk), map[string]Policy{
		"send-otp": {Limit: 3, Window: time.Minute},
	})
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestLimiterAdmit(t *testing.T) {
	ctx := context.Background()

	t.Run("DeniesAfterLimit", func(t *testing.T) {
		// Arrange
		clk := &fakeClock{now: time.Now()}
		limiter := newTestLimiter(clk)

		// Act
		var decisions []Decision
		for range 4 {
			decisions = append(decisions, limiter.Admit(ctx, "alice@example.com", "send-otp"))
		}

		// Assert
		for i, d := range decisions[:3] {
			if !d.Allowed {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		last := decisions[3]
		if last.Allowed {
			t.Fatalf("4th request should be denied")
		}
		if last.RetryAfter <= 0 || last.RetryAfter > time.Minute {
			t.Fatalf("retry after should be within the window, got %v", last.RetryAfter)
		}
	})

	t.Run("AllowsAfterWindowReset", func(t *testing.T) {
		// Arrange
		clk := &fakeClock{now: time.Now()}
		limiter := newTestLimiter(clk)

		for range 4 {
			limiter.Admit(ctx, "alice@example.com", "send-otp")
		}

		// Act
		clk.now = clk.now.Add(time.Minute + time.Second)
		d := limiter.Admit(ctx, "alice@example.com", "send-otp")

		// Assert
		if !d.Allowed {
			t.Fatalf("request after window reset should be allowed")
		}
		if d.Remaining != 2 {
			t.Fatalf("expected 2 remaining after first request in fresh window, got %d", d.Remaining)
		}
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		// Arrange
		clk := &fakeClock{now: time.Now()}
		limiter := newTestLimiter(clk)

		for range 4 {
			limiter.Admit(ctx, "alice@example.com", "send-otp")
		}

		// Act
		d := limiter.Admit(ctx, "bob@example.com", "send-otp")

		// Assert
		if !d.Allowed {
			t.Fatalf("another client should not be affected")
		}
	})

	t.Run("AllowsUnknownEndpoint", func(t *testing.T) {
		// Arrange
		clk := &fakeClock{now: time.Now()}
		limiter := newTestLimiter(clk)

		// Act
		d := limiter.Admit(ctx, "alice@example.com", "unknown")

		// Assert
		if !d.Allowed {
			t.Fatalf("endpoint without policy should be allowed")
		}
	})

	t.Run("FailsOpenOnStoreError", func(t *testing.T) {
		// Arrange
		limiter := NewLimiter(failingStore{}, map[string]Policy{
			"send-otp": {Limit: 3, Window: time.Minute},
		})

		// Act
		d := limiter.Admit(ctx, "alice@example.com", "send-otp")

		// Assert
		if !d.Allowed {
			t.Fatalf("store failure should admit the request")
		}
	})
}
