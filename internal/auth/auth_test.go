package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{
			Debug: true,
		},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-key",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			RefreshCookieName:    "refresh_token",
			RefreshCookiePath:    "/auth/refresh",
			LedgerSweepInterval:  time.Hour,
		},
		OTP: config.OTPConfig{
			Expiration:  120 * time.Second,
			MaxAttempts: 5,
		},
		Timezone: "UTC",
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Dispatch(to, subject, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	config  *config.AppConfig
	repo    *mockRepository
	clock   *fakeClock
	hasher  *Hasher
	otp     *OtpEngine
	guard   *BlacklistGuard
	tokens  *TokenService
	mailer  *recordingMailer
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	cfg := newTestConfig()
	repo := newMockRepository().(*mockRepository)
	clock := newFakeClock()
	hasher := NewHasher()
	otp := NewOtpEngine(&cfg.OTP, hasher, clock, repo)
	guard := NewBlacklistGuard(clock, repo)
	tokens := NewTokenService(&cfg.Auth, newTestLogger(t), repo, clock)
	mailer := &recordingMailer{}

	return &testEnv{
		config:  cfg,
		repo:    repo,
		clock:   clock,
		hasher:  hasher,
		otp:     otp,
		guard:   guard,
		tokens:  tokens,
		mailer:  mailer,
		service: NewService(cfg, newTestLogger(t), repo, hasher, otp, guard, tokens, mailer),
	}
}
