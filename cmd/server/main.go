// NorthBank - two-role banking backend
// Entry point for the API server
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

	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/handlers"
	"github.com/findosh/northbank/internal/logging"
	"github.com/findosh/northbank/internal/middleware"
	"github.com/findosh/northbank/internal/services/admin"
	"github.com/findosh/northbank/internal/services/auth"
	"github.com/findosh/northbank/internal/services/ledger"
	"github.com/findosh/northbank/internal/services/session"
	"github.com/findosh/northbank/internal/services/token"
	"github.com/findosh/northbank/internal/storage"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "northbank: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(db.DB)
	transactionRepo := storage.NewTransactionRepository(db.DB)

	sessions, closeSessions, err := newSessionRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Initialize services
	authService := auth.NewService(cfg, userRepo, sessions, token.NewIssuer([]byte(cfg.SecretKey)), logger)
	ledgerService := ledger.NewService(cfg, userRepo, transactionRepo, logger)
	adminService, err := admin.NewService(cfg, userRepo, transactionRepo, logger)
	if err != nil {
		return err
	}

	if err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	h := handlers.New(cfg, logger, authService, ledgerService, adminService)
	mux := h.Routes(middleware.NewAuth(authService))

	// Apply global middleware
	handler := middleware.Chain(
		mux,
		middleware.Logger(logger),
		middleware.Recover(logger),
		middleware.SecurityHeaders,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("session_backend", cfg.SessionBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newSessionRegistry builds the configured session backend. The returned
// func releases its resources.
func newSessionRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Registry, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisRegistry(client, cfg.SessionDuration), func() { client.Close() }, nil

	default:
		registry := session.NewMemoryRegistry(cfg.SessionDuration, logger.Named("session"))
		go registry.Run(ctx, cfg.SessionSweepInterval)
		return registry, func() {}, nil
	}
}
