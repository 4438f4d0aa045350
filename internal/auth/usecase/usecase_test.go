package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/schoolhub/schoolhub/internal/auth/outbound/memory"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/hash"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/ratelimit"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeOtp struct {
	codes []string
	next  int
}

func (f *fakeOtp) Generate() (string, error) {
	if f.next >= len(f.codes) {
		return "", errors.New("no more codes")
	}

	code := f.codes[f.next]
	f.next++

	return code, nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	codes []string
}

func (f *fakeMailer) SendOtp(_ context.Context, email, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("smtp unavailable")
	}

	f.sent = append(f.sent, email)
	f.codes = append(f.codes, code)

	return nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []UserFirstLoginEvent
}

func (f *fakeMessaging) PublishUserFirstLogin(_ context.Context, msg UserFirstLoginEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, msg)

	return nil
}

type countingUID struct {
	mu   sync.Mutex
	next int64
}

func (c *countingUID) Generate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++

	return c.next
}

type uuidStub struct{}

func (uuidStub) Generate() string { return "test-jti" }

type fixture struct {
	uc     *Usecase
	clock  *fakeClock
	mailer *fakeMailer
	mq     *fakeMessaging
	rt     *goroutine.Manager
}

func newFixture(t *testing.T, otp *fakeOtp, mailer *fakeMailer) *fixture {
	t.Helper()

	clk := &fakeClock{now: time.Now()}
	mq := &fakeMessaging{}

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator: %v", err)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  auth:\n    otp_ttl_minutes: 15\n"))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	tokener, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "schoolhub",
		Audiences: []string{"schoolhub-web"},
		TTL:       24 * time.Hour,
		Clock:     clk,
		UUID:      uuidStub{},
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(clk), map[string]ratelimit.Policy{
		EndpointSendOtp:   {Limit: 3, Window: time.Minute},
		EndpointVerifyOtp: {Limit: 5, Window: 10 * time.Minute},
	})

	rt := goroutine.NewManager(8)

	uc := New(Dependency{
		RepoDB:        memory.NewStore(&countingUID{}, clk),
		RepoMessaging: mq,
		RepoMailer:    mailer,
		Validator:     v,
		Config:        cfg,
		Limiter:       limiter,
		Otp:           otp,
		HMAC:          hash.NewHMACSHA256("test-secret"),
		Clock:         clk,
		JWT:           tokener,
		Instrument:    instrument.NewNoop(),
		Goroutine:     rt,
	})

	return &fixture{uc: uc, clock: clk, mailer: mailer, mq: mq, rt: rt}
}

func isInvalidOtp(err error) bool {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		return false
	}

	return gerr.Error() == "Invalid or expired OTP"
}

func TestOtpSend(t *testing.T) {
	ctx := context.Background()

	t.Run("IssuesAndDeliversCode", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		// Act
		out, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "Alice@Example.com"})

		// Assert
		if err != nil {
			t.Fatalf("OtpSend: %v", err)
		}
		if out.ExpiresInSeconds != int((15 * time.Minute).Seconds()) {
			t.Fatalf("unexpected ttl: %d", out.ExpiresInSeconds)
		}
		if len(f.mailer.sent) != 1 || f.mailer.sent[0] != "alice@example.com" {
			t.Fatalf("expected one mail to the normalized address, got %v", f.mailer.sent)
		}
	})

	t.Run("RejectsInvalidEmail", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		// Act
		_, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "not-an-email"})

		// Assert
		var gerr *goerror.Error
		if !errors.As(err, &gerr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if gerr.StatusCode() != http.StatusBadRequest {
			t.Fatalf("malformed email must answer 400, got %d", gerr.StatusCode())
		}
	})

	t.Run("FailsWhenMailFails", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{fail: true})

		// Act
		_, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"})

		// Assert
		if err == nil {
			t.Fatalf("expected issuance to fail when delivery fails")
		}
	})

	t.Run("RateLimitsFourthSend", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"111111", "222222", "333333", "444444"}}, &fakeMailer{})

		for range 3 {
			if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
				t.Fatalf("OtpSend: %v", err)
			}
		}

		// Act
		_, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"})

		// Assert
		var gerr *goerror.Error
		if !errors.As(err, &gerr) {
			t.Fatalf("expected rate limit error, got %v", err)
		}
		if gerr.RetryAfterSeconds() <= 0 || gerr.RetryAfterSeconds() > 60 {
			t.Fatalf("retry after should be within the window, got %d", gerr.RetryAfterSeconds())
		}

		// Another address is unaffected.
		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "bob@example.com"}); err != nil {
			t.Fatalf("OtpSend for another address: %v", err)
		}
	})
}

func TestOtpVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("VerifiesAndEstablishesSession", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("OtpSend: %v", err)
		}

		// Act
		out, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "123456"})

		// Assert
		if err != nil {
			t.Fatalf("OtpVerify: %v", err)
		}
		if out.Token == "" {
			t.Fatalf("expected session token")
		}
		if out.User.Email != "alice@example.com" || out.User.Name != "alice" {
			t.Fatalf("unexpected user: %+v", out.User)
		}
		if out.ExpiresInSeconds != int((24 * time.Hour).Seconds()) {
			t.Fatalf("cookie lifetime should match token ttl, got %d", out.ExpiresInSeconds)
		}
	})

	t.Run("CodeVerifiesExactlyOnce", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("OtpSend: %v", err)
		}
		if _, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "123456"}); err != nil {
			t.Fatalf("first OtpVerify: %v", err)
		}

		// Act
		_, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "123456"})

		// Assert
		if !isInvalidOtp(err) {
			t.Fatalf("replayed code should fail with the generic message, got %v", err)
		}
	})

	t.Run("ReissueInvalidatesPreviousCode", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"111111", "222222"}}, &fakeMailer{})

		for range 2 {
			if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
				t.Fatalf("OtpSend: %v", err)
			}
		}

		// Act
		_, errOld := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "111111"})
		outNew, errNew := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "222222"})

		// Assert
		if !isInvalidOtp(errOld) {
			t.Fatalf("first code should be dead after reissue, got %v", errOld)
		}
		if errNew != nil || outNew.Token == "" {
			t.Fatalf("latest code should verify, got %v", errNew)
		}
	})

	t.Run("ExpiredCodeFails", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("OtpSend: %v", err)
		}

		f.clock.Advance(16 * time.Minute)

		// Act
		_, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "123456"})

		// Assert
		if !isInvalidOtp(err) {
			t.Fatalf("expired code should fail even when correct, got %v", err)
		}
	})

	t.Run("WrongCodeGetsGenericMessage", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"123456"}}, &fakeMailer{})

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("OtpSend: %v", err)
		}

		// Act
		_, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "999999"})

		// Assert
		if !isInvalidOtp(err) {
			t.Fatalf("wrong code should fail with the generic message, got %v", err)
		}
	})

	t.Run("FirstLoginCreatesUserAndPublishes", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeOtp{codes: []string{"111111", "222222"}}, &fakeMailer{})

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("OtpSend: %v", err)
		}
		first, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "111111"})
		if err != nil {
			t.Fatalf("first OtpVerify: %v", err)
		}

		if _, err := f.uc.OtpSend(ctx, OtpSendInput{Email: "alice@example.com"}); err != nil {
			t.Fatalf("second OtpSend: %v", err)
		}

		// Act
		second, err := f.uc.OtpVerify(ctx, OtpVerifyInput{Email: "alice@example.com", Code: "222222"})

		// Assert
		if err != nil {
			t.Fatalf("second OtpVerify: %v", err)
		}
		if first.User.ID != second.User.ID {
			t.Fatalf("returning user should keep their id")
		}

		if err := f.rt.Wait(); err != nil {
			t.Fatalf("goroutine wait: %v", err)
		}

		f.mq.mu.Lock()
		defer f.mq.mu.Unlock()
		if len(f.mq.events) != 1 {
			t.Fatalf("expected one first-login event, got %d", len(f.mq.events))
		}
		if f.mq.events[0].Email != "alice@example.com" {
			t.Fatalf("unexpected event: %+v", f.mq.events[0])
		}
	})
}
