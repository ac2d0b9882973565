package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ShutdownConfig holds configuration for graceful shutdown
type ShutdownConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Timeout for graceful shutdown
	Timeout time.Duration

	// Signals to listen for (default: SIGINT, SIGTERM, SIGQUIT)
	Signals []os.Signal

	// OnShutdownStart is called when shutdown begins
	OnShutdownStart func()

	// OnShutdownComplete is called when shutdown completes
	OnShutdownComplete func()
}

// DefaultShutdownConfig returns a default shutdown configuration
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: defaultSignals(),
	}
}

func defaultSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Kubernetes/Docker stop
		syscall.SIGQUIT, // Ctrl+\
	}
}

// Resource represents a resource that needs cleanup during shutdown.
// Each client, pool or server handle must be wrapped by exactly one
// registered Resource; nothing else closes it.
type Resource interface {
	Name() string
	Close(ctx context.Context) error
}

// ShutdownManager manages graceful shutdown of the application
type ShutdownManager struct {
	config    *ShutdownConfig
	logger    *slog.Logger
	resources []Resource
	mu        sync.RWMutex
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(config *ShutdownConfig) *ShutdownManager {
	if config == nil {
		config = DefaultShutdownConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if len(config.Signals) == 0 {
		config.Signals = defaultSignals()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ShutdownManager{
		config:    config,
		logger:    logger,
		resources: make([]Resource, 0),
	}
}

// Register adds a resource to be cleaned up during shutdown
func (sm *ShutdownManager) Register(resource Resource) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.resources = append(sm.resources, resource)
	sm.logger.Debug("resource registered for shutdown", "resource", resource.Name())
}

// Wait blocks until a shutdown signal is received or failed yields an error,
// then performs graceful shutdown. The failure, if any, is returned.
func (sm *ShutdownManager) Wait(failed <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sm.config.Signals...)
	defer signal.Stop(sigChan)

	var cause error
	select {
	case sig := <-sigChan:
		sm.logger.Info("shutdown signal received", "signal", sig.String())
	case cause = <-failed:
		sm.logger.Error("server failed, shutting down", "error", cause)
	}

	if sm.config.OnShutdownStart != nil {
		sm.config.OnShutdownStart()
	}

	ctx, cancel := context.WithTimeout(context.Background(), sm.config.Timeout)
	defer cancel()

	err := sm.Shutdown(ctx)

	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete()
	}

	if cause != nil {
		return cause
	}
	return err
}

// Shutdown closes all registered resources in reverse registration order
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.mu.RLock()
	resources := make([]Resource, len(sm.resources))
	copy(resources, sm.resources)
	sm.mu.RUnlock()

	sm.logger.Info("initiating graceful shutdown",
		"timeout", sm.config.Timeout.String(),
		"resources", len(resources),
	)

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if ctx.Err() != nil {
			sm.logger.Warn("shutdown timeout exceeded, skipping remaining resources", "resource", r.Name())
			errs = append(errs, ctx.Err())
			break
		}

		sm.logger.Info("closing resource", "resource", r.Name())
		start := time.Now()

		if err := r.Close(ctx); err != nil {
			sm.logger.Error("failed to close resource",
				"resource", r.Name(),
				"error", err,
				"duration", time.Since(start).String(),
			)
			errs = append(errs, err)
			continue
		}

		sm.logger.Info("resource closed successfully",
			"resource", r.Name(),
			"duration", time.Since(start).String(),
		)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sm.logger.Info("all resources closed successfully")
	return nil
}

// HTTPServerResource wraps an HTTP server for graceful shutdown
type HTTPServerResource struct {
	server *http.Server
	name   string
}

// NewHTTPServerResource creates a new HTTP server resource
func NewHTTPServerResource(name string, server *http.Server) *HTTPServerResource {
	return &HTTPServerResource{
		server: server,
		name:   name,
	}
}

func (h *HTTPServerResource) Name() string {
	return h.name
}

func (h *HTTPServerResource) Close(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// DatabaseResource wraps a database pool for graceful shutdown
type DatabaseResource struct {
	pool *pgxpool.Pool
	name string
}

// NewDatabaseResource creates a new database resource
func NewDatabaseResource(name string, pool *pgxpool.Pool) *DatabaseResource {
	return &DatabaseResource{
		pool: pool,
		name: name,
	}
}

func (d *DatabaseResource) Name() string {
	return d.name
}

// pgxpool.Close() doesn't accept context, but we can wait for it
func (d *DatabaseResource) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RedisResource wraps a Redis client for graceful shutdown
type RedisResource struct {
	client *redis.Client
	name   string
}

// NewRedisResource creates a new Redis resource
func NewRedisResource(name string, client *redis.Client) *RedisResource {
	return &RedisResource{
		client: client,
		name:   name,
	}
}

func (r *RedisResource) Name() string {
	return r.name
}

func (r *RedisResource) Close(ctx context.Context) error {
	return r.client.Close()
}

// CustomResource wraps a custom cleanup function
type CustomResource struct {
	name      string
	closeFunc func(ctx context.Context) error
}

// NewCustomResource creates a new custom resource
func NewCustomResource(name string, closeFunc func(ctx context.Context) error) *CustomResource {
	return &CustomResource{
		name:      name,
		closeFunc: closeFunc,
	}
}

func (c *CustomResource) Name() string {
	return c.name
}

func (c *CustomResource) Close(ctx context.Context) error {
	return c.closeFunc(ctx)
}
