// Package otpcode provides generation of short numeric one-time codes used in
// email verification flows.
//
// Unlike TOTP, these codes are random, stored server-side, and valid for a
// single use within a fixed window.
package otpcode

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// Digits is the fixed length of generated codes.
const Digits = 6

// codeMin and codeMax bound the code range so every code is exactly six
// digits without leading zeros.
const (
	codeMin = 100000
	codeMax = 999999
)

// Generator produces random numeric one-time codes.
type Generator interface {
	// Generate returns a new six digit code as a string.
	Generate() (string, error)
}

// CryptoGenerator implements Generator using crypto/rand.
type CryptoGenerator struct{}

// NewCryptoGenerator constructs a CryptoGenerator.
func NewCryptoGenerator() *CryptoGenerator {
	return &CryptoGenerator{}
}

// Generate returns a uniformly random code in [100000, 999999].
func (g *CryptoGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(codeMin+n.Int64(), 10), nil
}
