package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
)

// EndpointVerifyOtp is the rate limit policy key for code verification.
const EndpointVerifyOtp = "verify-otp"

type OtpVerifyInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otp"`
}

type OtpVerifyOutput struct {
	Token            string
	User             entity.User
	ExpiresInSeconds int
}

// OtpVerify checks the submitted code against the pending challenge and, on
// success, establishes a session.
//
// A challenge verifies at most once. Wrong code, already used code, and
// expired code are indistinguishable to the caller.
func (s *Usecase) OtpVerify(ctx context.Context, in OtpVerifyInput) (*OtpVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "OtpVerify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	decision := s.limiter.Admit(ctx, email, EndpointVerifyOtp)
	if !decision.Allowed {
		slog.WarnContext(ctx, "otp verification rate limited", "email", email)
		return nil, goerror.NewRateLimited(
			"Too many requests. Please try again later.",
			int(decision.RetryAfter.Seconds()),
		)
	}

	codeHash, err := s.hmac.Hash(in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	ok, err := s.repoDB.ConsumeChallenge(ctx, email, string(codeHash), s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume otp challenge", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		slog.WarnContext(ctx, "otp verification rejected", "email", email)
		return nil, goerror.NewBusiness("Invalid or expired OTP", goerror.CodeInvalidFormat)
	}

	user, created, err := s.repoDB.GetOrCreateUser(ctx, email, displayName(email), entity.RoleUser)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get or create user", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if created {
		s.publishFirstLogin(ctx, UserFirstLoginEvent{UserID: user.ID, Email: user.Email, Name: user.Name})
	}

	token, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &OtpVerifyOutput{
		Token:            token,
		User:             *user,
		ExpiresInSeconds: int(s.jwt.TTL().Seconds()),
	}, nil
}

func (s *Usecase) publishFirstLogin(ctx context.Context, evt UserFirstLoginEvent) {
	ctx = context.WithoutCancel(ctx)

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishUserFirstLogin(ctx, evt); err != nil {
			slog.WarnContext(ctx, "failed to publish user first login event",
				"user_id", evt.UserID, "error", err)
		}

		return nil
	})
}

// displayName derives an initial profile name from the email local part.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}

	return local
}
