package usecase

import (
	"context"
	"time"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/hash"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/otpcode"
	"github.com/schoolhub/schoolhub/internal/pkg/ratelimit"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// UserFirstLoginEvent is published when verification creates a new account.
type UserFirstLoginEvent struct {
	UserID int64
	Email  string
	Name   string
}

type repoMessaging interface {
	PublishUserFirstLogin(ctx context.Context, msg UserFirstLoginEvent) error
}

type repoMailer interface {
	SendOtp(ctx context.Context, email, code string, ttl time.Duration) error
}

type repoDB interface {
	UpsertChallenge(ctx context.Context, in entity.OtpChallenge) error
	ConsumeChallenge(ctx context.Context, email, codeHash string, now time.Time) (bool, error)
	PurgeChallenges(ctx context.Context, before time.Time) (int64, error)
	GetOrCreateUser(ctx context.Context, email, name, role string) (*entity.User, bool, error)
}

// Usecase implements the OTP authentication workflows.
type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoMailer    repoMailer
	validator     validator.Validator
	cfg           config.Config
	limiter       *ratelimit.Limiter
	otp           otpcode.Generator
	hmac          hash.Hash
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoMailer    repoMailer
	Validator     validator.Validator
	Config        config.Config
	Limiter       *ratelimit.Limiter
	Otp           otpcode.Generator
	HMAC          hash.Hash
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoMailer:    dep.RepoMailer,
		validator:     dep.Validator,
		cfg:           dep.Config,
		limiter:       dep.Limiter,
		otp:           dep.Otp,
		hmac:          dep.HMAC,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}

func (s *Usecase) otpTTL() time.Duration {
	ttl := s.cfg.GetMinute("modules.auth.otp_ttl_minutes")
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return ttl
}
