package auth

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mkarimov/fastauth/internal/config"
	"github.com/mkarimov/fastauth/internal/mail"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(db *gorm.DB) Repository {
					return NewRepository(db)
				},
			),
			fx.Annotate(
				func(cfg *config.AppConfig) (Clock, error) {
					return NewClock(cfg.Timezone)
				},
			),
			NewHasher,
			fx.Annotate(
				func(cfg *config.AppConfig, hasher *Hasher, clock Clock, repo Repository) *OtpEngine {
					return NewOtpEngine(&cfg.OTP, hasher, clock, repo)
				},
			),
			NewBlacklistGuard,
			fx.Annotate(
				func(cfg *config.AppConfig, log *zap.Logger, repo Repository, clock Clock) *TokenService {
					return NewTokenService(&cfg.Auth, log, repo, clock)
				},
			),
			fx.Annotate(
				func(
					cfg *config.AppConfig,
					log *zap.Logger,
					repo Repository,
					hasher *Hasher,
					otp *OtpEngine,
					guard *BlacklistGuard,
					tokens *TokenService,
					dispatcher *mail.Dispatcher,
				) *Service {
					return NewService(cfg, log, repo, hasher, otp, guard, tokens, dispatcher)
				},
			),
			NewHandler,
			NewMiddleware,
			fx.Annotate(
				func(cfg *config.AppConfig, log *zap.Logger, repo Repository, clock Clock) *LedgerSweeper {
					return NewLedgerSweeper(&cfg.Auth, log, repo, clock)
				},
			),
		),
		fx.Invoke(registerSweeperHooks),
	)
}

func registerSweeperHooks(lifecycle fx.Lifecycle, sweeper *LedgerSweeper) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
