package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/auth"
	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/reviewhub/internal/delivery/http"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/handler"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/cache"
	"github.com/Pesokrava/reviewhub/internal/pkg/database"
	"github.com/Pesokrava/reviewhub/internal/pkg/health"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/reviewhub/internal/repository/cache"
	"github.com/Pesokrava/reviewhub/internal/repository/memory"
	"github.com/Pesokrava/reviewhub/internal/repository/postgres"
	"github.com/Pesokrava/reviewhub/internal/usecase/item"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"

	_ "github.com/Pesokrava/reviewhub/docs"
)

// @title ReviewHub API
// @version 1.0
// @description Item reviews with synchronously maintained rating aggregates.

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/reviewhub

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Items
// @tag.description Item catalogue endpoints

// @tag.name Reviews
// @tag.description Review endpoints; mutations keep item aggregates current

// @tag.name Auth
// @tag.description Session tokens

// reviewCache is what both services need from the cache layer
type reviewCache interface {
	item.Cache
	review.Cache
}

// storage bundles the record store behind the domain interfaces
type storage struct {
	items   domain.ItemRepository
	reviews domain.ReviewRepository
	locker  domain.ItemLocker
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	if cfg.LogLevel != "" {
		appLogger.SetLevel(cfg.LogLevel)
	}
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting ReviewHub API...")

	checks := health.NewRegistry()
	startupCtx := context.Background()

	store, err := openStorage(startupCtx, cfg, appLogger, checks)
	if err != nil {
		appLogger.Fatal("Failed to open storage", err)
	}
	defer store.close()

	var itemCache reviewCache = cacheRepo.NoopCache{}
	if cfg.Cache.Enabled {
		appLogger.Info("Connecting to Redis...")
		redisClient, err := cache.Connect(startupCtx, cfg, 10, 2*time.Second, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()
		checks.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		itemCache = cacheRepo.NewRedisCache(redisClient, cfg.Cache.ItemTTL, cfg.Cache.ItemListTTL)
		appLogger.Info("Connected to Redis successfully")
	}

	var publisher review.EventPublisher
	if cfg.NATS.EventsEnabled {
		appLogger.Info("Connecting to NATS...")
		natsPublisher, err := events.NewPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create NATS publisher", err)
		}
		defer natsPublisher.Close()
		checks.Register("nats", natsPublisher.Ping)
		publisher = natsPublisher
	}

	engine := aggregate.NewEngine(appLogger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	itemService := item.NewService(store.items, itemCache, appLogger)
	reviewService := review.NewService(store.reviews, store.locker, engine, itemCache, publisher, appLogger)
	reviewService.SetRetryPolicy(review.RetryPolicy{
		MaxAttempts: cfg.Storage.TxMaxRetries,
		Backoff:     cfg.Storage.TxRetryBackoff,
	})

	router := httpDelivery.NewRouter(
		handler.NewItemHandler(itemService, appLogger),
		handler.NewReviewHandler(reviewService, appLogger),
		handler.NewAuthHandler(tokens, appLogger),
		tokens,
		checks,
		cfg,
		appLogger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}

	reviewService.Wait()
	appLogger.Info("Server stopped gracefully")
}

func openStorage(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, checks *health.Registry) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		appLogger.Warn("Using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		return &storage{
			items:   mem.Items(),
			reviews: mem.Reviews(),
			locker:  mem,
			close:   func() {},
		}, nil
	}

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.Connect(ctx, cfg, 10, 2*time.Second, appLogger)
	if err != nil {
		return nil, err
	}
	appLogger.Info("Connected to PostgreSQL successfully")

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		appLogger.Info("Database migrations applied")
	}

	checks.Register("postgres", db.PingContext)

	return &storage{
		items:   postgres.NewItemRepository(db),
		reviews: postgres.NewReviewRepository(db),
		locker:  postgres.NewTxManager(db),
		close:   func() { db.Close() },
	}, nil
}
