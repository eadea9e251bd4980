// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/shopcore/internal/api"
	"github.com/taibuivan/shopcore/internal/platform/config"
	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/mailer"
	"github.com/taibuivan/shopcore/internal/platform/metrics"
	"github.com/taibuivan/shopcore/internal/platform/migration"
	pgstore "github.com/taibuivan/shopcore/internal/platform/postgres"
	redisstore "github.com/taibuivan/shopcore/internal/platform/redis"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/users/auth"
)

// startupTimeout catches misconfigured dependencies quickly instead of hanging.
const startupTimeout = 30 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. With STORE_DRIVER=postgres the server
connects to PostgreSQL and Redis and applies pending migrations first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// backends holds the storage implementations chosen by STORE_DRIVER.
type backends struct {
	credentials auth.CredentialStore
	activity    auth.ActivityStore
	throttle    auth.ResetThrottle
	health      api.HealthDependencies
	close       func()
}

func serve(parent context.Context, cfg *config.Config, log *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	rootCtx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// # Storage
	stores, err := openBackends(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	// # Security
	hasher, err := sec.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return startupFailure(log, "initialize_hasher", err)
	}

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Issuer:         constants.AuthIssuer,
		Secret:         cfg.JWTSecret,
		PrivateKeyPath: cfg.JWTPrivKeyPath,
		PublicKeyPath:  cfg.JWTPubKeyPath,
	})
	if err != nil {
		return startupFailure(log, "initialize_token_service", err)
	}

	// # Outbound Mail
	sender, err := newSender(cfg, log)
	if err != nil {
		return startupFailure(log, "initialize_mailer", err)
	}

	// # Domain Wiring
	collectors := metrics.New()
	options := auth.Options{
		StoreTimeout:  cfg.StoreTimeout,
		MailTimeout:   cfg.MailTimeout,
		SessionTTL:    cfg.SessionTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
		ResetCooldown: cfg.ResetCooldown,
		Observer:      collectors,
	}

	activity := auth.NewActivityLog(stores.activity, options)
	service, err := auth.NewService(stores.credentials, hasher, tokens, activity, options)
	if err != nil {
		return startupFailure(log, "initialize_auth_service", err)
	}

	authHandler := auth.NewHandler(auth.HandlerDeps{
		Provisioning:  auth.NewProvisioningService(stores.credentials, hasher, options),
		Auth:          service,
		Reset:         auth.NewPasswordResetService(stores.credentials, hasher, sender, stores.throttle, activity, options),
		Activity:      activity,
		Verifier:      tokens,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	liveness, readiness := api.NewHealthHandlers(stores.health, log)

	// # HTTP Server
	serverCtx, cancelServer := context.WithCancel(context.Background())
	server := api.NewServer(serverCtx, cfg, log, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Auth:       authHandler,
		Metrics:    collectors.Handler(),
		Instrument: collectors.Middleware,
	})
	defer func() {
		cancelServer()
		<-server.Done()
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// # Graceful Shutdown
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
		return err
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		return err
	}

	log.Info("server_stopped")
	return nil
}

// openBackends connects the stores for cfg.StoreDriver.
func openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("memory_store_selected", slog.String("note", "state is lost on restart"))
		return &backends{
			credentials: auth.NewMemoryCredentialStore(),
			activity:    auth.NewMemoryActivityStore(),
			throttle:    auth.NewMemoryResetThrottle(time.Now),
			close:       func() {},
		}, nil
	}

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, startupFailure(log, "connect_postgres", err)
	}

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		pool.Close()
		return nil, startupFailure(log, "connect_redis", err)
	}

	closeAll := func() {
		log.Info("closing_redis_client")
		if err := rdb.Close(); err != nil {
			log.Error("redis_close_failed", slog.Any("error", err))
		}
		log.Info("closing_postgres_pool")
		pool.Close()
	}

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		closeAll()
		return nil, startupFailure(log, "run_migrations", err)
	}

	return &backends{
		credentials: auth.NewPostgresCredentialStore(pool),
		activity:    auth.NewPostgresActivityStore(pool),
		throttle:    auth.NewRedisResetThrottle(rdb),
		health: api.HealthDependencies{
			CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
			CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		},
		close: closeAll,
	}, nil
}

// newSender picks the SMTP relay when configured, otherwise logs messages.
func newSender(cfg *config.Config, log *slog.Logger) (mailer.Sender, error) {
	if cfg.SMTPHost == "" {
		log.Warn("smtp_not_configured", slog.String("sender", "log"))
		return mailer.NewLogSender(log), nil
	}

	sender, err := mailer.NewSMTPSender(smtpConfig(cfg), log)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func smtpConfig(cfg *config.Config) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUser,
		Password:   cfg.SMTPPass,
		From:       cfg.SMTPFrom,
		MaxRetries: cfg.SMTPMaxRetries,
	}
}

func startupFailure(log *slog.Logger, stage string, err error) error {
	log.Error("startup_failure", slog.String("stage", stage), slog.Any("error", err))
	return fmt.Errorf("%s: %w", stage, err)
}
