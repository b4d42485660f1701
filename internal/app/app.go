package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pharaohsclub/treasury/internal/api"
	"github.com/pharaohsclub/treasury/internal/api/handler"
	"github.com/pharaohsclub/treasury/internal/config"
	"github.com/pharaohsclub/treasury/internal/db"
	"github.com/pharaohsclub/treasury/internal/idempotency"
	"github.com/pharaohsclub/treasury/internal/notify"
	"github.com/pharaohsclub/treasury/internal/observability"
	"github.com/pharaohsclub/treasury/internal/repository"
	"github.com/pharaohsclub/treasury/internal/service"
	"github.com/pharaohsclub/treasury/internal/worker"
)

// Run bootstraps the HTTP server and reconciliation worker, blocking
// until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	store := repository.NewPgStore(pool)
	sink := notify.NewRedisSink(redisClient, cfg.NotificationStream)

	requestSvc := service.NewRequestService(store, cfg.MinWithdrawalMicros)
	escrowSvc := service.NewEscrowService(store)
	accountSvc := service.NewAccountService(store)
	workflow := service.NewWorkflow(store, requestSvc, escrowSvc, sink)

	reconciliationSvc := service.NewReconciliationService(store)
	reconciliationWorker := worker.NewReconciliationWorker(reconciliationSvc).
		WithInterval(cfg.ReconciliationInterval)
	stopWorker := reconciliationWorker.Run(ctx)

	router := api.NewRouter(api.Deps{
		Cfg:       cfg,
		Logger:    logger,
		Health:    handler.NewHealthHandler(pool, redisClient),
		IdemStore: idemStore,
		Workflow:  workflow,
		Requests:  requestSvc,
		Escrow:    escrowSvc,
		Accounts:  accountSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping reconciliation worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
