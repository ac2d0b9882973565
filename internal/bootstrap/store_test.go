package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"edge_redirects/internal/config"
	"edge_redirects/internal/server"
	"edge_redirects/internal/store"
	"edge_redirects/internal/zone"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMemoryStore(t *testing.T) {
	dir := t.TempDir()
	description := "redirects:\n  - from: /a\n    to: https://b.com/\n"
	if err := os.WriteFile(filepath.Join(dir, "a.com.yaml"), []byte(description), 0o644); err != nil {
		t.Fatalf("failed to write zone: %v", err)
	}

	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendMemory, ZonesDir: dir}}
	backend, err := OpenStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer backend.Close(context.Background())

	record, err := backend.Store.Get(context.Background(), "a.com")
	if err != nil {
		t.Fatalf("expected seeded zone, got %v", err)
	}
	zc, err := zone.Parse(record)
	if err != nil || len(zc.Redirects) != 1 || zc.Name != "a.com" {
		t.Fatalf("unexpected record %s (%v)", record, err)
	}
}

func TestOpenRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("edge:a.com", `{"redirects":[]}`)

	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.BackendRedis},
		Redis: config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "edge:"},
	}
	backend, err := OpenStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := backend.Store.Get(context.Background(), "a.com"); err != nil {
		t.Fatalf("expected prefixed key to be found, got %v", err)
	}
	if len(backend.Resources) != 1 {
		t.Fatalf("expected the redis client to be registered for shutdown")
	}
	if err := backend.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: "etcd"}}
	if _, err := OpenStore(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestCachedRedisShutdownClosesClientOnce(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.BackendRedis},
		Redis: config.RedisConfig{Addr: mr.Addr()},
	}
	backend, err := OpenStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached := store.NewCachedStore(backend.Store, &store.CacheConfig{TTL: time.Minute, Logger: quietLogger()})

	sm := server.NewShutdownManager(&server.ShutdownConfig{Logger: quietLogger(), Timeout: 5 * time.Second})
	for _, r := range backend.Resources {
		sm.Register(r)
	}
	sm.Register(server.NewCustomResource("zone-cache", func(ctx context.Context) error {
		return cached.Close()
	}))

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
