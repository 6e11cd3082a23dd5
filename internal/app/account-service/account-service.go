// Package accountservice собирает приложение: хранилище, кэш, почтовый
// транспорт, сервисы и HTTP-сервер с graceful shutdown.
package accountservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	accountservices "github.com/magabrotheeeer/account-service/internal/services/account"
	authservices "github.com/magabrotheeeer/account-service/internal/services/auth"
	cleanerservices "github.com/magabrotheeeer/account-service/internal/services/cleaner"
	senderservices "github.com/magabrotheeeer/account-service/internal/services/sender"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *repository.Storage
	cleaner *cleanerservices.CleanerService
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	transport := smtp.NewTransport(cfg.SMTP, logger)

	senderService := senderservices.NewSenderService(transport, logger)
	authService := authservices.NewAuthService(db, senderService, jwtMaker, logger)
	accountService := accountservices.NewAccountService(db, senderService, logger)
	cleanerService := cleanerservices.NewCleanerService(db, cfg.Cleaner.PurgeInterval, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, db, cacheRedis, jwtMaker, authService, accountService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		db:      db,
		cleaner: cleanerService,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.cleaner.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
