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

	"github.com/common-nighthawk/go-figure"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/telcexam/exam-platform/internal/api"
	"github.com/telcexam/exam-platform/internal/api/metrics"
	"github.com/telcexam/exam-platform/internal/core/ports"
	"github.com/telcexam/exam-platform/internal/core/service"
	"github.com/telcexam/exam-platform/internal/infrastructure/db/memory"
	"github.com/telcexam/exam-platform/internal/infrastructure/db/mongo"
	"github.com/telcexam/exam-platform/internal/infrastructure/db/redis"
	"github.com/telcexam/exam-platform/internal/pkg/config"
	"github.com/telcexam/exam-platform/pkg/logger"
)

const (
	appName         = "exam-platform"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: appName,
	})

	if !cfg.IsProduction() {
		figure.NewFigure("TELC Exam", "cybermedium", true).Print()
		fmt.Println()
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Persistence ---
	var (
		db           *mongodriver.Database
		userRepo     ports.UserRepository
		settingsRepo ports.SettingsRepository
	)
	switch cfg.DataStore {
	case config.DataStoreMongo:
		client, database, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		if err := mongo.EnsureIndexes(ctx, database); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		db = database
		userRepo = mongo.NewUserRepository(database)
		settingsRepo = mongo.NewSettingsRepository(database)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	default:
		userRepo = memory.NewUserRepository()
		settingsRepo = memory.NewSettingsRepository()
		log.Warn().Msg("using in-memory user and settings store, data is lost on restart")
	}

	// --- Core services ---
	credentials := service.NewCredentialService(userRepo, cfg.BcryptCost, log)
	settings := service.NewSettingsService(settingsRepo, log)

	seed := service.AdminSeed{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Email:    cfg.Admin.Email,
		FullName: cfg.Admin.FullName,
	}
	if err := service.NewBootstrapper(userRepo, credentials, settingsRepo, log).Run(ctx, seed); err != nil {
		return err
	}
	if err := settings.Load(ctx); err != nil {
		return err
	}
	policy := settings.SessionPolicy()
	log.Info().
		Dur("session_timeout", policy.Timeout).
		Dur("warning_before_logout", policy.WarningBeforeLogout).
		Msg("session policy loaded")

	// --- Sessions ---
	var (
		sessions ports.SessionStore
		rdb      goredis.UniversalClient
	)
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
		sessions = redis.NewSessionStore(client, settings)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in redis")
	default:
		store := memory.NewSessionStore(settings, log,
			memory.WithSweepInterval(cfg.Session.SweepInterval),
			memory.WithSweepHook(metrics.ObserveSweep),
		)
		store.Start(ctx)
		sessions = store
		log.Info().Dur("sweep_interval", cfg.Session.SweepInterval).Msg("sessions stored in memory")
	}

	authService := service.NewAuthService(credentials, sessions, settings, log,
		service.WithRevokeOnPasswordChange(cfg.Session.RevokeOnPasswordChange),
	)
	adminService := service.NewAdminService(userRepo, credentials, sessions, settings, log)

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Log:          log,
		Auth:         authService,
		Admin:        adminService,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		LoginPath:    cfg.LoginPath,
		PagesDir:     cfg.PagesDir,
		Mongo:        db,
		Redis:        rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
