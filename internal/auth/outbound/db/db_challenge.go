package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/schoolhub/schoolhub/internal/auth/entity"
)

// UpsertChallenge stores a pending challenge for the email, replacing any
// previous one. The email column is unique, so at most one challenge per
// address exists.
func (s *DB) UpsertChallenge(ctx context.Context, in entity.OtpChallenge) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertChallenge")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO otp_challenges (email, code_hash, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (email) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			is_used = false,
			created_at = EXCLUDED.created_at
	`

	_, err = s.conn.Exec(ctx, query, in.Email, in.CodeHash, in.ExpiresAt, in.CreatedAt)
	err = s.mapError(err)
	return err
}

// ConsumeChallenge atomically marks the matching challenge used. It reports
// false when no unused, unexpired challenge matches the email and hash, which
// covers wrong code, replayed code, and expired code alike.
func (s *DB) ConsumeChallenge(ctx context.Context, email, codeHash string, now time.Time) (ok bool, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeChallenge")
	defer func() { s.endSpan(span, err) }()

	query := `
		UPDATE otp_challenges
		SET is_used = true
		WHERE email = $1 AND code_hash = $2 AND is_used = false AND expires_at > $3
		RETURNING email
	`

	var matched string
	err = s.conn.QueryRow(ctx, query, email, codeHash, now).Scan(&matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		err = s.mapError(err)
		return false, err
	}

	return true, nil
}

// PurgeChallenges deletes challenges that expired before the cutoff.
func (s *DB) PurgeChallenges(ctx context.Context, before time.Time) (count int64, err error) {
	ctx, span := s.startSpan(ctx, "PurgeChallenges")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < $1`, before)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}

	return tag.RowsAffected(), nil
}
