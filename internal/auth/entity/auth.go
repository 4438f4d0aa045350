package entity

import "time"

// Default role assigned to users created on first login.
const RoleUser = "user"

// RoleAdmin can mutate any school record.
const RoleAdmin = "admin"

// OtpChallenge is the single pending one-time code for an email address.
//
// Issuing a new code replaces the previous challenge for the same email, so
// at most one row exists per address.
type OtpChallenge struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Expired reports whether the challenge is no longer valid at the given time.
func (c OtpChallenge) Expired(at time.Time) bool {
	return !at.Before(c.ExpiresAt)
}

// User is an account in the registry.
//
// Accounts are created lazily on first successful OTP verification.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}
