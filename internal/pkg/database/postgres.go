package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Open connects to PostgreSQL, applies the pool settings and pings the server
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Connect retries Open until it succeeds, attempts run out or ctx ends.
// Containers start in any order, so the first attempts are expected to fail.
func Connect(ctx context.Context, cfg *config.Config, attempts int, delay time.Duration, log *logger.Logger) (*sqlx.DB, error) {
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		var db *sqlx.DB
		db, err = Open(ctx, cfg)
		if err == nil {
			return db, nil
		}

		log.WithFields(logger.Fields{
			"attempt": attempt,
			"host":    cfg.Database.Host,
		}).Warnf("PostgreSQL not ready: %v", err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}
