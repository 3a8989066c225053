package users

import (
	"go.uber.org/fx"
)

// NewModule returns the users listing module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			NewService,
			NewHandler,
		),
	)
}
