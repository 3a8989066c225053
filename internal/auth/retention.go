package auth

import (
	"time"

	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

// LedgerSweeper periodically deletes consumption-ledger rows older than the
// refresh token TTL. Such rows belong to tokens that have expired and can
// never be replayed, so the ledger stays bounded.
type LedgerSweeper struct {
	config *config.AuthConfig
	log    *zap.Logger
	repo   Repository
	clock  Clock
	done   chan struct{}
}

func NewLedgerSweeper(cfg *config.AuthConfig, log *zap.Logger, repo Repository, clock Clock) *LedgerSweeper {
	return &LedgerSweeper{
		config: cfg,
		log:    log,
		repo:   repo,
		clock:  clock,
		done:   make(chan struct{}),
	}
}

func (s *LedgerSweeper) Start() {
	go s.run()
}

func (s *LedgerSweeper) Stop() {
	close(s.done)
}

func (s *LedgerSweeper) run() {
	ticker := time.NewTicker(s.config.LedgerSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Sweep runs one retention pass.
func (s *LedgerSweeper) Sweep() {
	cutoff := s.clock.Now().Add(-s.config.RefreshTokenDuration)
	deleted, err := s.repo.PurgeRefreshTokensBefore(cutoff)
	if err != nil {
		s.log.Error("failed to sweep refresh token ledger", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.log.Info("swept refresh token ledger", zap.Int64("deleted", deleted))
	}
}
