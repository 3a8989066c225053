package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/mkarimov/fastauth/internal/config"
)

// OtpEngine generates, refreshes and validates one-time passcodes.
//
// State machine per email: none -> pending -> (refreshed)* -> consumed
// or blacklisted once the attempt counter reaches the configured maximum.
type OtpEngine struct {
	config *config.OTPConfig
	hasher *Hasher
	clock  Clock
	repo   Repository
}

func NewOtpEngine(cfg *config.OTPConfig, hasher *Hasher, clock Clock, repo Repository) *OtpEngine {
	return &OtpEngine{
		config: cfg,
		hasher: hasher,
		clock:  clock,
		repo:   repo,
	}
}

// GenerateOrRefresh creates a pending code for the email, or refreshes the
// existing one and increments its attempt counter. The plaintext code is
// returned exactly once; only its hash is stored.
func (e *OtpEngine) GenerateOrRefresh(email string) (*Otp, string, bool, error) {
	code, err := randomCode()
	if err != nil {
		return nil, "", false, err
	}

	hashed, err := e.hasher.Hash(code)
	if err != nil {
		return nil, "", false, err
	}

	expiresAt := e.clock.Now().Add(e.config.Expiration)

	otp, created, err := e.repo.GetOrCreateOtp(&Otp{
		Email:      email,
		HashedCode: hashed,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return nil, "", false, err
	}

	if !created {
		otp.HashedCode = hashed
		otp.ExpiresAt = expiresAt
		otp.Attempts++
		if err := e.repo.UpdateOtp(otp); err != nil {
			return nil, "", false, err
		}
	}

	return otp, code, created, nil
}

// ShouldBlacklist reports whether a refreshed record has exhausted its
// attempts and the email must be escalated.
func (e *OtpEngine) ShouldBlacklist(otp *Otp, isNew bool) bool {
	return !isNew && otp.Attempts >= e.config.MaxAttempts
}

// IsValid checks a plaintext code against a stored record. Absent or expired
// records are invalid regardless of the code; expiry is strict, so a record
// whose expiry equals the current instant is already invalid.
func (e *OtpEngine) IsValid(code string, otp *Otp) bool {
	if otp == nil {
		return false
	}
	if !e.clock.Now().Before(otp.ExpiresAt) {
		return false
	}
	return e.hasher.Verify(otp.HashedCode, code)
}

// Consume deletes the record. Callers must only consume after a successful
// verification.
func (e *OtpEngine) Consume(otp *Otp) error {
	return e.repo.DeleteOtp(otp)
}

// randomCode returns a uniformly random six-digit code in 100000-999999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
