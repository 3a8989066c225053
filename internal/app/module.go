package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/auth"
	"github.com/mkarimov/fastauth/internal/database"
	"github.com/mkarimov/fastauth/internal/mail"
	"github.com/mkarimov/fastauth/internal/migration"
	"github.com/mkarimov/fastauth/internal/server"
	"github.com/mkarimov/fastauth/internal/users"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Logger
		fx.Provide(newLogger),

		// Configuration
		fx.Provide(server.LoadConfig),

		// Database & migrations
		database.Module(),
		migration.Module(),

		// Mail collaborator
		mail.Module(),

		// Auth core
		auth.NewModule(),

		// User listing surface
		users.NewModule(),

		// Server
		fx.Provide(server.NewServer),

		// Start the server
		fx.Invoke(registerHooks),
	)
}

func newLogger() (*zap.Logger, error) {
	env := os.Getenv("APP_ENV")
	return server.NewLogger(env)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			srv.Stop()
			return nil
		},
	})
}
