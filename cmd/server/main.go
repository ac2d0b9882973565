package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"edge_redirects/internal/bootstrap"
	"edge_redirects/internal/config"
	"edge_redirects/internal/handler"
	"edge_redirects/internal/matcher"
	"edge_redirects/internal/middlewares"
	"edge_redirects/internal/observability"
	"edge_redirects/internal/resolver"
	"edge_redirects/internal/responder"
	"edge_redirects/internal/server"
	"edge_redirects/internal/store"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level.Set(cfg.App.LogLevel)

	if cfg.Engine.HTTPSOnly && !cfg.TLS.Enabled && !cfg.Engine.TrustForwardedProto {
		logger.Warn("HTTPS_ONLY without TLS or TRUST_FORWARDED_PROTO passes every request through")
	}

	// Open the zone store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open zone store: %v", err)
	}

	metrics := observability.NewMetrics(&observability.MetricsConfig{
		Logger:    logger,
		Namespace: cfg.Metrics.Namespace,
	})

	var zones store.Store = backend.Store
	resources := backend.Resources
	if cfg.Cache.TTL > 0 {
		cached := store.NewCachedStore(backend.Store, &store.CacheConfig{
			TTL:             cfg.Cache.TTL,
			CleanupInterval: time.Minute,
			Logger:          logger,
		})
		zones = cached
		resources = append(resources, server.NewCustomResource("zone-cache", func(ctx context.Context) error {
			return cached.Close()
		}))
	}

	var origin responder.Origin
	if cfg.Origin.URL != "" {
		httpOrigin, err := responder.NewHTTPOrigin(&responder.OriginConfig{
			URL:     cfg.Origin.URL,
			Timeout: cfg.Origin.Timeout,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("Failed to configure origin: %v", err)
		}
		origin = httpOrigin
	}

	engine := handler.New(handler.Config{
		Resolver: resolver.New(resolver.Config{
			Store:   zones,
			Logger:  logger,
			Metrics: metrics,
		}),
		Matcher:             matcher.New(logger, metrics),
		Builder:             responder.NewBuilder(origin, logger),
		HTTPSOnly:           cfg.Engine.HTTPSOnly,
		TrustForwardedProto: cfg.Engine.TrustForwardedProto,
		Logger:              logger,
		Metrics:             metrics,
	})

	edge := middlewares.Chain(engine,
		middlewares.Recovery(&middlewares.RecoveryConfig{Logger: logger}),
		observability.RequestID(&observability.RequestIDConfig{Logger: logger}),
		middlewares.Logger(&middlewares.LoggerConfig{
			Logger:             logger,
			IncludeUserAgent:   true,
			IncludeQueryParams: true,
		}),
		metrics.Middleware(),
	)

	serverConfig := server.DefaultConfig(":" + cfg.Server.Port)
	serverConfig.Name = "redirect-server"
	serverConfig.Logger = logger
	if cfg.TLS.Enabled {
		serverConfig.TLSCertFile = cfg.TLS.CertFile
		serverConfig.TLSKeyFile = cfg.TLS.KeyFile
	}
	if cfg.Origin.Timeout > 0 && serverConfig.WriteTimeout <= cfg.Origin.Timeout {
		serverConfig.WriteTimeout = cfg.Origin.Timeout + 5*time.Second
	}

	servers := []*server.Server{server.New(edge, serverConfig)}

	if cfg.Admin.Port != "" {
		adminConfig := server.AdminConfig(":" + cfg.Admin.Port)
		adminConfig.Logger = logger
		servers = append(servers, server.New(adminMux(cfg, zones, metrics, logger), adminConfig))
	}

	logger.Info("Starting redirect engine",
		"port", cfg.Server.Port,
		"admin_port", cfg.Admin.Port,
		"store_backend", cfg.Store.Backend,
		"zone_cache_ttl", cfg.Cache.TTL.String(),
	)

	err = server.Run(servers, resources, &server.ShutdownConfig{
		Logger:  logger,
		Timeout: 30 * time.Second,
		OnShutdownStart: func() {
			logger.Info("shutdown initiated, stopping servers gracefully")
		},
		OnShutdownComplete: func() {
			logger.Info("shutdown complete")
		},
	})
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func adminMux(cfg *config.Config, zones store.Store, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	health := &observability.HealthConfig{
		Logger:  logger,
		Version: cfg.App.Version,
		Checks: map[string]observability.HealthCheck{
			"zone_store": observability.StoreHealthCheck(zones),
		},
		CheckTimeout:      5 * time.Second,
		IncludeSystemInfo: true,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /health", observability.HealthHandler(health))
	mux.Handle("GET /ready", observability.ReadinessHandler(health))
	mux.Handle("GET /live", observability.LivenessHandler())
	return mux
}
