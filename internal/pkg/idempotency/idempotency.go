// Package idempotency provides a Redis-backed guard that makes an operation
// safe to retry under the same key.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrInvalidState      = errors.New("invalid state")
)

// State is the lifecycle of an idempotency key.
type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // operation already in progress
	StateCompleted  State = "completed"   // operation already completed
	StateError      State = "error"       // this operation error
)

func (s State) String() string {
	return string(s)
}

// Idempotency guards an operation so that concurrent or repeated calls with
// the same key run at most once.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error) error
}

// StateTracker implements Idempotency using Redis SETNX.
type StateTracker struct {
	client       *redis.Client
	prefix       string
	lockDuration time.Duration
	stateTTL     time.Duration
}

// New constructs a StateTracker with one-minute lock and completion windows.
func New(client *redis.Client) *StateTracker {
	return &StateTracker{
		client:       client,
		prefix:       "idempotency:",
		lockDuration: time.Minute,
		stateTTL:     time.Minute,
	}
}

func (s *StateTracker) acquire(ctx context.Context, key string) (State, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), s.lockDuration).Result()
	if err != nil {
		return StateError, err
	}
	if acquired {
		return StateNone, nil
	}

	result, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// The key expired between SetNX and Get, take it now.
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), s.lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}
		return StateError, ErrInvalidState
	}
	if err != nil {
		return StateError, err
	}

	switch result {
	case StateInProgress.String():
		return StateInProgress, nil
	case StateCompleted.String():
		return StateCompleted, nil
	default:
		return StateError, ErrInvalidState
	}
}

// Exec runs fn once per key.
//
// A failed fn releases the key so the caller can retry; a successful fn marks
// the key completed for the state TTL.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error) error {
	state, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		if delErr := s.client.Del(ctx, s.prefix+key).Err(); delErr != nil {
			return errors.Join(err, delErr)
		}
		return err
	}

	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), s.stateTTL).Err()
}
