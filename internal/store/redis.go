package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore reads zone records published as plain string values in Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ ReadWriter = (*RedisStore)(nil)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Redis connection address
	Addr string

	// Redis password
	Password string

	// Redis database number
	DB int

	// Optional namespace prepended to every key
	Prefix string

	// Maximum number of retries
	MaxRetries int

	// Connection pool size
	PoolSize int

	// Connection timeout
	DialTimeout time.Duration

	// Read timeout
	ReadTimeout time.Duration

	// Write timeout
	WriteTimeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Logger:       nil,
	}
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", "error", err, "addr", config.Addr)
		_ = client.Close()
		return nil, &Error{Op: "connect", Backend: "redis", Err: err}
	}

	logger.Info("redis store initialized", "addr", config.Addr, "db", config.DB)

	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		logger: logger,
	}, nil
}

// Client exposes the underlying client for shutdown handling
func (rs *RedisStore) Client() *redis.Client {
	return rs.client
}

// Get retrieves a record from Redis
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := rs.client.Get(ctx, rs.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		rs.logger.Error("redis get failed", "error", err, "key", key)
		return nil, &Error{Op: "get", Backend: "redis", Key: key, Err: err}
	}

	return result, nil
}

// Put stores a record in Redis without expiration
func (rs *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := rs.client.Set(ctx, rs.prefixKey(key), value, 0).Err(); err != nil {
		rs.logger.Error("redis set failed", "error", err, "key", key)
		return &Error{Op: "put", Backend: "redis", Key: key, Err: err}
	}

	return nil
}

// Delete removes a record from Redis
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.prefixKey(key)).Err(); err != nil {
		rs.logger.Error("redis delete failed", "error", err, "key", key)
		return &Error{Op: "delete", Backend: "redis", Key: key, Err: err}
	}

	return nil
}

// Keys returns all keys matching the pattern, using SCAN rather than KEYS
func (rs *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	iter := rs.client.Scan(ctx, 0, rs.prefixKey(pattern), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, rs.unprefixKey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		rs.logger.Error("redis scan failed", "error", err, "pattern", pattern)
		return nil, &Error{Op: "keys", Backend: "redis", Err: err}
	}

	return keys, nil
}

// Ping checks if Redis is accessible
func (rs *RedisStore) Ping(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return &Error{Op: "ping", Backend: "redis", Err: err}
	}

	return nil
}

// Close is a no-op; the client is closed by the shutdown manager
func (rs *RedisStore) Close() error {
	return nil
}

func (rs *RedisStore) prefixKey(key string) string {
	if rs.prefix == "" {
		return key
	}
	return rs.prefix + key
}

func (rs *RedisStore) unprefixKey(key string) string {
	if rs.prefix == "" {
		return key
	}
	if len(key) > len(rs.prefix) {
		return key[len(rs.prefix):]
	}
	return key
}
