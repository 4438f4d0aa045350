package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
)

// EndpointSendOtp is the rate limit policy key for code issuance.
const EndpointSendOtp = "send-otp"

type OtpSendInput struct {
	Email string `validate:"required,email"`
}

type OtpSendOutput struct {
	// ExpiresInSeconds is how long the issued code stays valid.
	ExpiresInSeconds int
}

// OtpSend issues a fresh one-time code for the email address and delivers it
// by email.
//
// Issuance replaces any previous pending code for the address, so only the
// latest code verifies.
func (s *Usecase) OtpSend(ctx context.Context, in OtpSendInput) (*OtpSendOutput, error) {
	ctx, span := s.startSpan(ctx, "OtpSend")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	decision := s.limiter.Admit(ctx, email, EndpointSendOtp)
	if !decision.Allowed {
		slog.WarnContext(ctx, "otp issuance rate limited", "email", email)
		return nil, goerror.NewRateLimited(
			"Too many requests. Please try again later.",
			int(decision.RetryAfter.Seconds()),
		)
	}

	code, err := s.otp.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.otpTTL()
	now := s.clock.Now()

	if err := s.repoDB.UpsertChallenge(ctx, entity.OtpChallenge{
		Email:     email,
		CodeHash:  string(codeHash),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert otp challenge", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMailer.SendOtp(ctx, email, code, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &OtpSendOutput{ExpiresInSeconds: int(ttl.Seconds())}, nil
}
