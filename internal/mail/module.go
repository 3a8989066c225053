package mail

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

// Module provides the mail collaborator
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(cfg *config.AppConfig) Sender {
					if !cfg.Mail.Enabled {
						return NoopSender{}
					}
					return NewSMTPSender(&cfg.Mail)
				},
			),
			fx.Annotate(
				func(sender Sender, log *zap.Logger) *Dispatcher {
					return NewDispatcher(sender, log)
				},
			),
		),
	)
}
