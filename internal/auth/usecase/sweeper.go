package usecase

import (
	"context"
	"log/slog"
	"time"
)

// SweepChallenges deletes challenges whose expiry passed before the retention
// window. Expired rows are already unusable; this only reclaims storage.
func (s *Usecase) SweepChallenges(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "SweepChallenges")
	defer span.End()

	retention := s.cfg.GetHour("modules.auth.sweep_retention_hours")
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	before := s.clock.Now().Add(-retention)

	deleted, err := s.repoDB.PurgeChallenges(ctx, before)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo purge otp challenges", "error", err)
		return err
	}

	if deleted > 0 {
		slog.InfoContext(ctx, "purged expired otp challenges", "count", deleted)
	}

	return nil
}
