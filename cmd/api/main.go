// @title           ConnectRH Core Auth API
// @version         1.0
// @description     Internal credential validation and signup service for the ConnectRH BFF.
// @BasePath        /
// @securityDefinitions.apikey InternalAPIKey
// @in              header
// @name            X-INTERNAL-API-KEY
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/connectrh/core-auth/internal/api"
	"github.com/connectrh/core-auth/internal/core/ports"
	"github.com/connectrh/core-auth/internal/core/service"
	"github.com/connectrh/core-auth/internal/infrastructure/config"
	"github.com/connectrh/core-auth/internal/infrastructure/crypto"
	rediscache "github.com/connectrh/core-auth/internal/infrastructure/db/redis"
	"github.com/connectrh/core-auth/pkg/logger"
)

const serviceName = "core-auth"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})

	st, err := openStore(ctx, cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer st.close(log)

	checks := map[string]ports.Pinger{st.driver: st.pinger}
	roles := st.roles

	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer closeLogged(log, "redis", rdb.Close)
		roles = rediscache.NewRoleCache(roles, rdb, cfg.Redis.RoleTTL, logger.Component("role_cache"))
		checks["redis"] = rediscache.NewPinger(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.RoleTTL).Msg("role cache enabled")
	}

	hasher, err := crypto.NewHasher(cfg.Hashing.Algorithm, cfg.Hashing.BcryptCost)
	if err != nil {
		return err
	}

	if cfg.Seed.Enabled {
		seeder := service.NewSeeder(st.users, roles, hasher, service.AdminAccount{
			Name:        cfg.Seed.AdminName,
			Email:       cfg.Seed.AdminEmail,
			Password:    cfg.Seed.AdminPassword,
			PhoneNumber: cfg.Seed.AdminPhone,
		}, logger.Component("seeder"))
		if err := seeder.Run(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	} else {
		log.Warn().Msg("seeding disabled; signup fails until the USER role exists")
	}

	authService := service.NewAuthService(st.users, roles, hasher, logger.Component("auth"))

	e := api.NewRouter(api.Dependencies{
		Validator:      authService,
		InternalAPIKey: cfg.InternalAPIKey,
		Checks:         checks,
		Log:            logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", st.driver).
			Str("env", cfg.Env).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// closeLogged runs fn and reports a failure at warn level.
func closeLogged(log zerolog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Msg(what + " close")
	}
}
