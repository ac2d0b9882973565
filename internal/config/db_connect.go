package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds the pool settings for the Postgres zone store
type DBConfig struct {
	DatabaseURL string

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration // 0 keeps connections forever
	MaxConnIdleTime   time.Duration // 0 disables idle eviction
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration

	// MaxRetries is the number of connection attempts; RetryDelay is the
	// first backoff step and doubles on each retry
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultDBConfig returns pool settings suited to a database behind an
// external connection pooler
func DefaultDBConfig(databaseURL string) *DBConfig {
	return &DBConfig{
		DatabaseURL:       databaseURL,
		MaxConns:          10,
		MinConns:          2,
		HealthCheckPeriod: 1 * time.Minute,
		ConnectTimeout:    10 * time.Second,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
	}
}

// NewDBConfig builds pool settings from the loaded database section
func NewDBConfig(cfg DatabaseConfig, logger *slog.Logger) *DBConfig {
	dbConfig := DefaultDBConfig(cfg.URL)
	dbConfig.Logger = logger
	dbConfig.MaxConns = cfg.MaxConns
	dbConfig.MinConns = cfg.MinConns
	dbConfig.MaxConnLifetime = cfg.MaxConnLifetime
	dbConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	if cfg.ConnectTimeout > 0 {
		dbConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.MaxRetries > 0 {
		dbConfig.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		dbConfig.RetryDelay = cfg.RetryDelay
	}
	return dbConfig
}

// NewPool connects to the zone database, retrying with exponential backoff
func NewPool(config *DBConfig) (*pgxpool.Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.MaxConnLifetime
	poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = config.HealthCheckPeriod
	if config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}

	logger.Info("connecting to zone database",
		"max_conns", config.MaxConns,
		"min_conns", config.MinConns,
		"max_retries", config.MaxRetries,
	)

	var lastErr error
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		pool, err := connectOnce(poolConfig, config.ConnectTimeout)
		if err == nil {
			logger.Info("database connection pool established",
				"attempt", attempt,
				"total_conns", pool.Stat().TotalConns(),
			)
			return pool, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, config.MaxRetries, err)
		logger.Warn("database connection failed",
			"attempt", attempt,
			"max_retries", config.MaxRetries,
			"error", err,
		)

		if attempt < config.MaxRetries {
			delay := calculateBackoff(config.RetryDelay, attempt)
			logger.Info("retrying database connection", "delay", delay.String())
			time.Sleep(delay)
		}
	}

	logger.Error("failed to establish database connection after all retries",
		"max_retries", config.MaxRetries,
		"error", lastErr,
	)

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", config.MaxRetries, lastErr)
}

// connectOnce creates a pool and verifies it with a ping
func connectOnce(poolConfig *pgxpool.Config, timeout time.Duration) (*pgxpool.Pool, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// calculateBackoff calculates exponential backoff delay
func calculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^(attempt-1)
	multiplier := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(baseDelay) * multiplier)

	// Cap at 30 seconds
	maxDelay := 30 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
