package auth

import (
	"sync"
	"time"
)

type mockRepository struct {
	users     map[uint]*User
	otps      map[string]*Otp
	blacklist map[string]*OtpBlacklist
	ledger    map[string]time.Time
	nextID    uint
	mu        sync.RWMutex
}

func newMockRepository() Repository {
	return &mockRepository{
		users:     make(map[uint]*User),
		otps:      make(map[string]*Otp),
		blacklist: make(map[string]*OtpBlacklist),
		ledger:    make(map[string]time.Time),
		nextID:    1,
	}
}

func (r *mockRepository) CreateUser(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrUserExists
		}
	}

	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *mockRepository) GetUserByID(id uint) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *mockRepository) GetUserByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *mockRepository) GetUserByUsername(username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *mockRepository) UpdateUser(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return ErrUserNotFound
	}

	for _, u := range r.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return ErrUserExists
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *mockRepository) DeleteUser(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[id]; !exists {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *mockRepository) GetOtpByEmail(email string) (*Otp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	otp, exists := r.otps[email]
	if !exists {
		return nil, ErrOtpNotFound
	}
	clone := *otp
	return &clone, nil
}

func (r *mockRepository) GetOrCreateOtp(otp *Otp) (*Otp, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.otps[otp.Email]; exists {
		clone := *existing
		return &clone, false, nil
	}

	otp.ID = r.nextID
	r.nextID++
	if otp.Attempts == 0 {
		otp.Attempts = 1
	}

	clone := *otp
	r.otps[otp.Email] = &clone
	return otp, true, nil
}

func (r *mockRepository) UpdateOtp(otp *Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.otps[otp.Email]; !exists {
		return ErrOtpNotFound
	}
	clone := *otp
	r.otps[otp.Email] = &clone
	return nil
}

func (r *mockRepository) DeleteOtp(otp *Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.otps, otp.Email)
	return nil
}

func (r *mockRepository) GetActiveBlacklist(email string, now time.Time) (*OtpBlacklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.blacklist[email]
	if !exists {
		return nil, ErrBlacklistNotFound
	}
	if entry.ExpiresAt != nil && entry.ExpiresAt.Before(now) {
		return nil, ErrBlacklistNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *mockRepository) GetOrCreateBlacklist(email string) (*OtpBlacklist, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.blacklist[email]; exists {
		clone := *existing
		return &clone, false, nil
	}

	entry := &OtpBlacklist{ID: r.nextID, Email: email}
	r.nextID++
	r.blacklist[email] = entry

	clone := *entry
	return &clone, true, nil
}

func (r *mockRepository) ConsumeRefreshToken(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ledger[token]; exists {
		return ErrTokenReplayed
	}
	r.ledger[token] = time.Now()
	return nil
}

func (r *mockRepository) PurgeRefreshTokensBefore(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for token, createdAt := range r.ledger {
		if createdAt.Before(cutoff) {
			delete(r.ledger, token)
			deleted++
		}
	}
	return deleted, nil
}

// otpCount reports the number of stored otp rows, used by tests.
func (r *mockRepository) otpCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.otps)
}

// blacklistCount reports the number of blacklist rows, used by tests.
func (r *mockRepository) blacklistCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blacklist)
}
