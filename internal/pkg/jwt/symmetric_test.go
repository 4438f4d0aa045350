package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fixedUUID struct{}

func (fixedUUID) Generate() string { return "test-token-id" }

func newTestJWT(t *testing.T, now time.Time, ttl time.Duration) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "schoolhub",
		Audiences: []string{"schoolhub-web"},
		TTL:       ttl,
		Clock:     fixedClock{now: now},
		UUID:      fixedUUID{},
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}

	return s
}

func TestNewHS512(t *testing.T) {
	t.Run("RejectsShortKey", func(t *testing.T) {
		// Arrange
		cfg := Config{Secret: []byte("too short")}

		// Act
		_, err := NewHS512(cfg)

		// Assert
		if !errors.Is(err, ErrSigningKeyTooShort) {
			t.Fatalf("expected ErrSigningKeyTooShort, got %v", err)
		}
	})
}

func TestSymmetricVerify(t *testing.T) {
	now := time.Now()

	t.Run("RoundTrip", func(t *testing.T) {
		// Arrange
		s := newTestJWT(t, now, time.Hour)

		token, err := s.Generate(42, "alice@example.com", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		clm, err := s.Verify(token)

		// Assert
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if clm.UserID != 42 || clm.UserEmail != "alice@example.com" || clm.UserRole != "user" {
			t.Fatalf("unexpected claims: %+v", clm)
		}
	})

	t.Run("RejectsTamperedToken", func(t *testing.T) {
		// Arrange
		s := newTestJWT(t, now, time.Hour)

		token, err := s.Generate(42, "alice@example.com", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		last := token[len(token)-1]
		flipped := byte('A')
		if last == flipped {
			flipped = 'B'
		}
		tampered := token[:len(token)-1] + string(flipped)

		// Act
		_, err = s.Verify(tampered)

		// Assert
		if err == nil {
			t.Fatalf("expected tampered token to fail verification")
		}
	})

	t.Run("RejectsExpiredToken", func(t *testing.T) {
		// Arrange
		issuer := newTestJWT(t, now.Add(-2*time.Hour), time.Hour)
		verifier := newTestJWT(t, now, time.Hour)

		token, err := issuer.Generate(42, "alice@example.com", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		_, err = verifier.Verify(token)

		// Assert
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("ExpiryFollowsInjectedClock", func(t *testing.T) {
		// Arrange
		issuedAt := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)
		issuer := newTestJWT(t, issuedAt, time.Hour)
		verifier := newTestJWT(t, issuedAt.Add(30*time.Minute), time.Hour)

		token, err := issuer.Generate(42, "alice@example.com", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		clm, err := verifier.Verify(token)

		// Assert
		if err != nil {
			t.Fatalf("token inside its window must verify against the injected clock: %v", err)
		}
		if clm.UserID != 42 {
			t.Fatalf("unexpected claims: %+v", clm)
		}
	})

	t.Run("RejectsIncompleteClaims", func(t *testing.T) {
		// Arrange
		s := newTestJWT(t, now, time.Hour)

		token, err := s.Generate(0, "", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		_, err = s.Verify(token)

		// Assert
		if !errors.Is(err, ErrIncompleteClaims) {
			t.Fatalf("expected ErrIncompleteClaims, got %v", err)
		}
	})

	t.Run("RejectsWrongKey", func(t *testing.T) {
		// Arrange
		s := newTestJWT(t, now, time.Hour)

		other, err := NewHS512(Config{
			Secret:    []byte(strings.Repeat("x", 64)),
			Issuer:    "schoolhub",
			Audiences: []string{"schoolhub-web"},
			TTL:       time.Hour,
			Clock:     fixedClock{now: now},
			UUID:      fixedUUID{},
		})
		if err != nil {
			t.Fatalf("NewHS512: %v", err)
		}

		token, err := other.Generate(42, "alice@example.com", "user")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		// Act
		_, err = s.Verify(token)

		// Assert
		if err == nil {
			t.Fatalf("expected token signed with another key to fail verification")
		}
	})
}
