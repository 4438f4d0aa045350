// Package auth is the email OTP authentication module. It issues one-time
// codes, verifies them, and manages the session that the rest of the app
// trusts.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/schoolhub/schoolhub/internal/auth/inbound"
	"github.com/schoolhub/schoolhub/internal/auth/outbound/db"
	"github.com/schoolhub/schoolhub/internal/auth/outbound/mailer"
	"github.com/schoolhub/schoolhub/internal/auth/outbound/memory"
	"github.com/schoolhub/schoolhub/internal/auth/outbound/mq"
	"github.com/schoolhub/schoolhub/internal/auth/usecase"
	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/hash"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/mail"
	"github.com/schoolhub/schoolhub/internal/pkg/messaging"
	"github.com/schoolhub/schoolhub/internal/pkg/otpcode"
	"github.com/schoolhub/schoolhub/internal/pkg/ratelimit"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Otp        otpcode.Generator          `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`

	// DBConn and CacheConn are optional. Without PostgreSQL the module keeps
	// challenges and users in process memory; without Redis the rate limit
	// counters live in process memory.
	DBConn    *pgxpool.Pool
	CacheConn *redis.Client
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	var counters ratelimit.CounterStore
	if dep.CacheConn != nil {
		counters = ratelimit.NewRedisStore(dep.CacheConn)
	} else {
		counters = ratelimit.NewMemoryStore(dep.Clock)
	}

	limiter := ratelimit.NewLimiter(counters, map[string]ratelimit.Policy{
		usecase.EndpointSendOtp: {
			Limit:  limitOrDefault(dep.Config, "modules.auth.send_limit", 3),
			Window: windowOrDefault(dep.Config, "modules.auth.send_window_seconds", time.Minute),
		},
		usecase.EndpointVerifyOtp: {
			Limit:  limitOrDefault(dep.Config, "modules.auth.verify_limit", 5),
			Window: windowOrDefault(dep.Config, "modules.auth.verify_window_seconds", 10*time.Minute),
		},
	})

	ucDep := usecase.Dependency{
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		RepoMailer:    mailer.NewMailer(dep.Mail, dep.Config.GetString("mail.smtp.sender")),
		Validator:     dep.Validator,
		Config:        dep.Config,
		Limiter:       limiter,
		Otp:           dep.Otp,
		HMAC:          dep.HMAC,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	}

	if dep.DBConn != nil {
		ucDep.RepoDB = db.NewDB(dep.DBConn, dep.Instrument)
	} else {
		slog.Warn("auth module running with in-memory challenge store")
		ucDep.RepoDB = memory.NewStore(dep.UID, dep.Clock)
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Config.GetBool("server.secure_cookie"))

	startSweeper(dep.Ctx, dep.Goroutine, dep.Config, uc)

	return nil
}

// startSweeper runs the challenge purge on an interval until the app context
// is canceled.
func startSweeper(ctx context.Context, routine *goroutine.Manager, cfg config.Config, uc *usecase.Usecase) {
	interval := cfg.GetMinute("modules.auth.sweep_interval_minutes")
	if interval <= 0 {
		interval = time.Hour
	}

	routine.Go(ctx, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := uc.SweepChallenges(ctx); err != nil {
					slog.WarnContext(ctx, "otp challenge sweep failed", "error", err)
				}
			}
		}
	})
}

func limitOrDefault(cfg config.Config, key string, def int64) int64 {
	if v := cfg.GetInt64(key); v > 0 {
		return v
	}

	return def
}

func windowOrDefault(cfg config.Config, key string, def time.Duration) time.Duration {
	if v := cfg.GetSecond(key); v > 0 {
		return v
	}

	return def
}
