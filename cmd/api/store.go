package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/core/ports"
	"github.com/connectrh/core-auth/internal/infrastructure/config"
	"github.com/connectrh/core-auth/internal/infrastructure/db/memory"
	mongostore "github.com/connectrh/core-auth/internal/infrastructure/db/mongo"
	pgstore "github.com/connectrh/core-auth/internal/infrastructure/db/postgres"
)

// store bundles the repositories of the selected driver.
type store struct {
	driver string
	users  ports.UserRepository
	roles  ports.RoleRepository
	pinger ports.Pinger
	close  func(zerolog.Logger)
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &store{
			driver: config.StoreMongo,
			users:  mongostore.NewUserRepository(db),
			roles:  mongostore.NewRoleRepository(db),
			pinger: mongostore.NewPinger(db),
			close: func(l zerolog.Logger) {
				closeLogged(l, "mongo", func() error { return client.Disconnect(context.Background()) })
			},
		}, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return &store{
			driver: config.StorePostgres,
			users:  pgstore.NewUserRepository(pool),
			roles:  pgstore.NewRoleRepository(pool),
			pinger: pgstore.NewPinger(pool),
			close:  func(zerolog.Logger) { pool.Close() },
		}, nil

	case config.StoreMemory:
		mem := memory.NewStore()
		log.Warn().Msg("memory store in use; data is lost on exit")
		return &store{
			driver: config.StoreMemory,
			users:  mem.UserRepository(),
			roles:  mem.RoleRepository(),
			pinger: mem,
			close:  func(zerolog.Logger) {},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
