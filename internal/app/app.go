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

	"github.com/agoralabs/marketplace-settlement/internal/api"
	"github.com/agoralabs/marketplace-settlement/internal/api/middleware"
	"github.com/agoralabs/marketplace-settlement/internal/catalog"
	"github.com/agoralabs/marketplace-settlement/internal/config"
	"github.com/agoralabs/marketplace-settlement/internal/db"
	"github.com/agoralabs/marketplace-settlement/internal/escrow"
	"github.com/agoralabs/marketplace-settlement/internal/gateway"
	"github.com/agoralabs/marketplace-settlement/internal/idempotency"
	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/ledger"
	"github.com/agoralabs/marketplace-settlement/internal/observability"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/agoralabs/marketplace-settlement/internal/token"
	"github.com/agoralabs/marketplace-settlement/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and reconciliation worker, blocking until
// shutdown.
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
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

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

	store := repository.NewPostgresStore(pool)
	idemStore := idempotency.NewStore(redisClient, store, cfg.IdempotencyTTL)

	tokenGateway := gateway.NewMockGateway()
	custodyLedger := ledger.New(tokenGateway, cfg.NativeCurrency, cfg.EscrowVaultAddress)
	identities := identity.NewService(store, cfg.AuthorityAddress)
	tokens := token.NewRegistry(store, cfg.AuthorityAddress, cfg.NativeCurrency)
	listings := catalog.NewService(store, identities, tokens)
	engine := escrow.NewEngine(store, custodyLedger, identities)

	auditor := ledger.NewAuditor(store)
	reconciliationWorker := worker.NewReconciliationWorker(auditor).WithInterval(cfg.ReconciliationInterval)
	stopWorker := reconciliationWorker.Run(ctx)

	router := api.NewRouter(cfg, logger, pool, redisClient, store, idemStore, api.Services{
		Escrow:   engine,
		Catalog:  listings,
		Identity: identities,
		Tokens:   tokens,
		Ledger:   custodyLedger,
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
