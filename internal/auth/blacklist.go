package auth

import (
	"errors"
	"fmt"
)

// BlacklistGuard gates OTP issuance for emails that have been blocked,
// either until an expiry or permanently.
type BlacklistGuard struct {
	clock Clock
	repo  Repository
}

func NewBlacklistGuard(clock Clock, repo Repository) *BlacklistGuard {
	return &BlacklistGuard{clock: clock, repo: repo}
}

// Check returns a human-readable block message when the email is actively
// blacklisted, or an empty string when it is clear. An entry is active while
// its expiry has not passed; a nil expiry blocks permanently.
func (g *BlacklistGuard) Check(email string) (string, error) {
	entry, err := g.repo.GetActiveBlacklist(email, g.clock.Now())
	if err != nil {
		if errors.Is(err, ErrBlacklistNotFound) {
			return "", nil
		}
		return "", err
	}

	if entry.ExpiresAt != nil {
		return fmt.Sprintf("You have been blocked until %s.", entry.ExpiresAt.Format("2006-01-02 15:04:05")), nil
	}
	return "You have been permanently blocked. If you believe this is a mistake, please contact support.", nil
}

// Escalate idempotently inserts a blacklist row for the email. Racing calls
// resolve through the insert-or-fetch idiom, never two rows.
func (g *BlacklistGuard) Escalate(email string) error {
	_, _, err := g.repo.GetOrCreateBlacklist(email)
	return err
}
