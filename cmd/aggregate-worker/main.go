package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/delivery/events"
	"github.com/Pesokrava/reviewhub/internal/pkg/cache"
	"github.com/Pesokrava/reviewhub/internal/pkg/database"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/reviewhub/internal/repository/cache"
	"github.com/Pesokrava/reviewhub/internal/repository/postgres"
	"github.com/Pesokrava/reviewhub/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	if cfg.LogLevel != "" {
		appLogger.SetLevel(cfg.LogLevel)
	}
	appLogger.Info("Starting aggregate worker...")

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		appLogger.Fatal("Aggregate worker requires the postgres storage driver", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.Connect(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	var invalidator worker.Invalidator
	if cfg.Cache.Enabled {
		redisClient, err := cache.Connect(ctx, cfg, 10, 2*time.Second, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()
		invalidator = cacheRepo.NewRedisCache(redisClient, cfg.Cache.ItemTTL, cfg.Cache.ItemListTTL)
	}

	runner := aggregate.NewRunner(postgres.NewTxManager(db), aggregate.NewEngine(appLogger))
	aggregateWorker := worker.NewAggregateWorker(runner, invalidator, appLogger)

	consumer, err := events.NewConsumer(cfg, "reviewhub-aggregate-worker", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- consumer.ConsumeDurable(ctx, aggregateWorker.HandleEvent)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Received shutdown signal")
	case err := <-consumeErr:
		if err != nil {
			appLogger.Error("Consumer stopped", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := aggregateWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Aggregate worker stopped")
}
