// Package memory is an in-process store for OTP challenges and users. It
// backs single-node deployments and tests where PostgreSQL is not available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
)

type Store struct {
	mutex      sync.Mutex
	challenges map[string]*entity.OtpChallenge
	users      map[string]*entity.User
	uid        uid.NumberID
	clock      clock.Clocker
}

func NewStore(uid uid.NumberID, clk clock.Clocker) *Store {
	if clk == nil {
		clk = &clock.TimeClocker{}
	}

	return &Store{
		challenges: make(map[string]*entity.OtpChallenge),
		users:      make(map[string]*entity.User),
		uid:        uid,
		clock:      clk,
	}
}

func (s *Store) UpsertChallenge(_ context.Context, in entity.OtpChallenge) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c := in
	s.challenges[in.Email] = &c

	return nil
}

func (s *Store) ConsumeChallenge(_ context.Context, email, codeHash string, now time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.challenges[email]
	if !ok || c.IsUsed || c.CodeHash != codeHash || c.Expired(now) {
		return false, nil
	}

	c.IsUsed = true

	return true, nil
}

func (s *Store) PurgeChallenges(_ context.Context, before time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var count int64
	for email, c := range s.challenges {
		if c.ExpiresAt.Before(before) {
			delete(s.challenges, email)
			count++
		}
	}

	return count, nil
}

func (s *Store) GetOrCreateUser(_ context.Context, email, name, role string) (*entity.User, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if u, ok := s.users[email]; ok {
		existing := *u
		return &existing, false, nil
	}

	u := &entity.User{
		ID:        s.uid.Generate(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	s.users[email] = u

	created := *u

	return &created, true, nil
}
