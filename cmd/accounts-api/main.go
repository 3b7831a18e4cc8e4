// Command accounts-api serves the account identity HTTP API.
//
//	@title						Accounts API
//	@version					1.0
//	@description				Account identity service: registration, superusers, credentials and permission checks.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/supplytrack/accounts/internal/api"
	"github.com/supplytrack/accounts/internal/api/handler"
	"github.com/supplytrack/accounts/internal/api/metrics"
	"github.com/supplytrack/accounts/internal/core/service"
	"github.com/supplytrack/accounts/internal/infrastructure/crypto"
	"github.com/supplytrack/accounts/internal/infrastructure/db/mongo"
	"github.com/supplytrack/accounts/internal/infrastructure/db/redis"
	"github.com/supplytrack/accounts/internal/pkg/config"
	"github.com/supplytrack/accounts/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "accounts-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "accounts-api"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := mongo.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()

	repo := mongo.NewAccountRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure account indexes")
	}

	hasher := metrics.InstrumentHasher(crypto.NewBcryptHasher(cfg.BcryptCost))
	var opts []service.Option

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		opts = append(opts, service.WithKeyLocker(redis.NewKeyLocker(rdb, cfg.Redis.LockTTL)))
	} else {
		log.Info().Msg("redis disabled, relying on unique indexes only")
	}

	store := service.NewAccountStore(repo, hasher, logger.Component("account_store"), opts...)
	auth := service.NewAuthService(repo, hasher, cfg.JWTSecret, cfg.TokenTTL, logger.Component("auth"))

	e := api.NewRouter(api.Deps{
		Accounts:  store,
		Auth:      auth,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger.Component("http"),
		Readiness: handler.NewHealthDependenciesHandler(db, rdb),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("accounts api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
