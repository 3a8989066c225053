package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mkarimov/fastauth/internal/api"
	"github.com/mkarimov/fastauth/internal/auth"
	"github.com/mkarimov/fastauth/internal/config"
	"github.com/mkarimov/fastauth/internal/users"
)

type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	httpServer *http.Server
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	UsersHandler   *users.Handler
}

func NewServer(p Params) *Server {
	router := chi.NewRouter()
	router.Use(requestID(p.Logger))
	router.Use(chimiddleware.Recoverer)

	// Public endpoints
	router.Group(func(r chi.Router) {
		r.Post(api.AuthRegister, p.AuthHandler.RegisterRequest)
		r.Post(api.AuthRegisterConfirm, p.AuthHandler.RegisterConfirm)
		r.Post(api.AuthLogin, p.AuthHandler.Login)
		r.Post(api.AuthRefresh, p.AuthHandler.Refresh)
		r.Post(api.AuthPasswordReset, p.AuthHandler.ResetPasswordRequest)
		r.Post(api.AuthPasswordSet, p.AuthHandler.SetPassword)
		r.Post(api.AuthActivate, p.AuthHandler.Activate)
	})

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(p.AuthMiddleware.Authenticate)
		r.Post(api.AuthPasswordChange, p.AuthHandler.ChangePassword)
		r.Patch(api.AuthProfile, p.AuthHandler.UpdateProfile)
		r.Delete(api.AuthAccount, p.AuthHandler.DeleteAccount)
		r.Get(api.AuthMe, p.AuthHandler.Me)

		// Account listing is restricted to admins
		r.Group(func(r chi.Router) {
			r.Use(p.AuthMiddleware.RequireAdmin)
			r.Get(api.UsersList, p.UsersHandler.List)
			r.Get(api.UsersDetail, p.UsersHandler.Get)
		})
	})

	addr := fmt.Sprintf("%s:%s", p.Config.Server.Host, p.Config.Server.Port)

	return &Server{
		config: p.Config,
		log:    p.Logger,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  p.Config.Server.ReadTimeout,
			WriteTimeout: p.Config.Server.WriteTimeout,
		},
	}
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (s *Server) Stop() {
	s.log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// requestID tags every request with a unique id for log correlation.
func requestID(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Request-ID", id)

			start := time.Now()
			next.ServeHTTP(w, r)

			log.Debug("request handled",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddBool("debug", config.Server.Debug)
		enc.AddString("timezone", config.Timezone)
		return nil
	})
}
