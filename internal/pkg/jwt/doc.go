// Package jwt provides signing and verification of session tokens.
//
// Tokens carry a fixed session payload (user id, email, role) on top of the
// registered claims and are verified against signature, expiry, issuer,
// audience, and structural completeness.
package jwt
