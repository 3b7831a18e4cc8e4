// Command accountctl runs operator tasks against the account store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"

	"github.com/supplytrack/accounts/internal/core/ports"
	"github.com/supplytrack/accounts/internal/core/service"
	"github.com/supplytrack/accounts/internal/infrastructure/crypto"
	"github.com/supplytrack/accounts/internal/infrastructure/db/mongo"
	"github.com/supplytrack/accounts/internal/infrastructure/db/redis"
	"github.com/supplytrack/accounts/internal/pkg/config"
	"github.com/supplytrack/accounts/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openMongoStore).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openMongoStore wires the same store the API uses, from the environment.
func openMongoStore(ctx context.Context) (ports.AccountService, func(), error) {
	cfg, err := config.LoadStoreWith(ctx, envconfig.OsLookuper())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "accountctl"})

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "accountctl"})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := mongo.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}

	repo := mongo.NewAccountRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	var opts []service.Option
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			// The unique indexes still guard creation; the lock only narrows races.
			log.Warn().Err(err).Msg("redis unavailable, continuing without key lock")
		} else {
			opts = append(opts, service.WithKeyLocker(redis.NewKeyLocker(rdb, cfg.Redis.LockTTL)))
			mongoCleanup := cleanup
			cleanup = func() {
				_ = rdb.Close()
				mongoCleanup()
			}
		}
	}

	store := service.NewAccountStore(repo, crypto.NewBcryptHasher(cfg.BcryptCost), logger.Component("account_store"), opts...)
	return store, cleanup, nil
}
