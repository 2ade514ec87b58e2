package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/delivery/events"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// The notifier observes review events without acking them, so it never
// competes with the aggregate worker for the work queue.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	if cfg.LogLevel != "" {
		appLogger.SetLevel(cfg.LogLevel)
	}
	appLogger.Info("Starting notifier service...")

	consumer, err := events.NewConsumer(cfg, "reviewhub-notifier", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	var received, failed atomic.Int64
	notify := events.LoggingHandler(appLogger)
	handler := func(data []byte) error {
		received.Add(1)
		if err := notify(data); err != nil {
			failed.Add(1)
			return err
		}
		return nil
	}

	if err := consumer.Subscribe(events.StreamSubjects, handler); err != nil {
		appLogger.Fatal("Failed to subscribe to review events", err)
	}

	appLogger.Info("Notifier service started and listening for events...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	appLogger.WithFields(logger.Fields{
		"received": received.Load(),
		"failed":   failed.Load(),
	}).Info("Shutting down notifier service")
}
