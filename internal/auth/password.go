package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// UnusablePassword is the stored marker for accounts that have no local
// password (externally provisioned identities). Verification against it
// always fails without attempting a hash comparison.
const UnusablePassword = "!UNUSABLE"

// Hasher performs one-way password hashing and verification.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	return string(bytes), err
}

// Verify fails closed: malformed or mismatched hashes resolve to false.
func (h *Hasher) Verify(stored, plaintext string) bool {
	if !h.IsUsable(stored) {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	return err == nil
}

func (h *Hasher) IsUsable(stored string) bool {
	return stored != UnusablePassword
}
