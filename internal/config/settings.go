package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backend names accepted in STORE_BACKEND
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	TLS      TLSConfig
	Admin    AdminConfig
	Engine   EngineConfig
	Origin   OriginConfig
	Store    StoreConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Version     string
	Environment string // development, staging, production
	LogLevel    slog.Level
}

// ServerConfig holds the redirect listener settings
type ServerConfig struct {
	Port string
}

// TLSConfig holds TLS/HTTPS certificate settings
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// AdminConfig holds the metrics and health listener settings
type AdminConfig struct {
	Port string // empty disables the admin listener
}

// EngineConfig holds request handling switches
type EngineConfig struct {
	// Only HTTPS requests are evaluated; everything else passes through
	HTTPSOnly bool

	// Take the request scheme from X-Forwarded-Proto
	TrustForwardedProto bool
}

// OriginConfig holds the pass-through origin settings
type OriginConfig struct {
	URL     string
	Timeout time.Duration // zero means no client-side timeout
}

// StoreConfig selects the configuration store backend
type StoreConfig struct {
	Backend  string
	ZonesDir string // seed directory for the memory backend
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// CacheConfig holds the zone lookup cache settings
type CacheConfig struct {
	TTL time.Duration // zero disables caching
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace string
}

// LoadConfig loads configuration from environment variables
func LoadConfig(logger *slog.Logger) (*Config, error) {
	// Load .env file (ignore error if it doesn't exist)
	godotenv.Load()

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("loading application configuration")

	config := &Config{}

	if err := loadAppConfig(&config.App, logger); err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	if err := loadServerConfig(&config.Server, logger); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	loadTLSConfig(&config.TLS, logger)
	loadAdminConfig(&config.Admin)
	loadEngineConfig(&config.Engine, logger)

	if err := loadOriginConfig(&config.Origin, logger); err != nil {
		return nil, fmt.Errorf("failed to load origin config: %w", err)
	}

	loadStoreConfig(&config.Store, logger)
	loadRedisConfig(&config.Redis, logger)
	loadDatabaseConfig(&config.Database, logger)

	if err := loadCacheConfig(&config.Cache); err != nil {
		return nil, fmt.Errorf("failed to load cache config: %w", err)
	}

	loadMetricsConfig(&config.Metrics)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded successfully",
		"environment", config.App.Environment,
		"version", config.App.Version,
		"port", config.Server.Port,
		"store_backend", config.Store.Backend,
		"https_only", config.Engine.HTTPSOnly,
	)

	return config, nil
}

func loadAppConfig(cfg *AppConfig, logger *slog.Logger) error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "1.0.0"
		logger.Warn("VERSION not set, using default", "default", version)
	}
	cfg.Version = version

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
		logger.Warn("ENV not set, using default", "default", env)
	}
	cfg.Environment = env

	level, err := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	return nil
}

func loadServerConfig(cfg *ServerConfig, logger *slog.Logger) error {
	port := os.Getenv("PORT")
	if port == "" {
		return fmt.Errorf("PORT environment variable is required")
	}
	cfg.Port = port

	return nil
}

func loadTLSConfig(cfg *TLSConfig, logger *slog.Logger) {
	certFile := os.Getenv("TLS_CERT_FILE")
	keyFile := os.Getenv("TLS_KEY_FILE")

	cfg.CertFile = certFile
	cfg.KeyFile = keyFile
	cfg.Enabled = certFile != "" && keyFile != ""

	if cfg.Enabled {
		logger.Info("TLS enabled", "cert_file", certFile, "key_file", keyFile)
	}
}

func loadAdminConfig(cfg *AdminConfig) {
	port, ok := os.LookupEnv("ADMIN_PORT")
	if !ok {
		port = "9090"
	}
	cfg.Port = port
}

func loadEngineConfig(cfg *EngineConfig, logger *slog.Logger) {
	cfg.HTTPSOnly = getEnvAsBool("HTTPS_ONLY", false)
	cfg.TrustForwardedProto = getEnvAsBool("TRUST_FORWARDED_PROTO", false)

	if cfg.HTTPSOnly {
		logger.Info("HTTPS-only mode enabled", "trust_forwarded_proto", cfg.TrustForwardedProto)
	}
}

func loadOriginConfig(cfg *OriginConfig, logger *slog.Logger) error {
	cfg.URL = os.Getenv("ORIGIN_URL")
	if cfg.URL == "" {
		logger.Warn("ORIGIN_URL not set, pass-through requests will fail with 502")
	}

	timeout, err := getEnvAsDuration("ORIGIN_TIMEOUT", 0)
	if err != nil {
		return err
	}
	cfg.Timeout = timeout

	return nil
}

func loadStoreConfig(cfg *StoreConfig, logger *slog.Logger) {
	backend := strings.ToLower(os.Getenv("STORE_BACKEND"))
	if backend == "" {
		backend = BackendRedis
		logger.Warn("STORE_BACKEND not set, using default", "default", backend)
	}
	cfg.Backend = backend
	cfg.ZonesDir = os.Getenv("ZONES_DIR")
}

func loadRedisConfig(cfg *RedisConfig, logger *slog.Logger) {
	cfg.Addr = os.Getenv("REDIS_ADDR")
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	cfg.DB = getEnvAsInt("REDIS_DB", 0)
	cfg.KeyPrefix = os.Getenv("REDIS_KEY_PREFIX")

	if cfg.Addr != "" {
		logger.Debug("Redis config loaded", "addr", cfg.Addr, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	}
}

func loadDatabaseConfig(cfg *DatabaseConfig, logger *slog.Logger) {
	cfg.URL = os.Getenv("DB_URL")

	// Pool settings with defaults
	cfg.MaxConns = getEnvAsInt32("DB_MAX_CONNS", 10)
	cfg.MinConns = getEnvAsInt32("DB_MIN_CONNS", 2)

	// Duration settings
	healthCheckSec := getEnvAsInt32("DB_HEALTH_CHECK_PERIOD_SECONDS", 60)
	cfg.HealthCheckPeriod = time.Duration(healthCheckSec) * time.Second

	maxLifetimeMin := getEnvAsInt32("DB_MAX_CONN_LIFETIME_MINUTES", 0)
	cfg.MaxConnLifetime = time.Duration(maxLifetimeMin) * time.Minute

	maxIdleMin := getEnvAsInt32("DB_MAX_CONN_IDLE_TIME_MINUTES", 0)
	cfg.MaxConnIdleTime = time.Duration(maxIdleMin) * time.Minute

	// Connection settings
	cfg.ConnectTimeout = 10 * time.Second
	cfg.MaxRetries = getEnvAsInt("DB_MAX_RETRIES", 3)
	cfg.RetryDelay = 1 * time.Second

	if cfg.URL != "" {
		logger.Debug("database config loaded",
			"max_conns", cfg.MaxConns,
			"min_conns", cfg.MinConns,
		)
	}
}

func loadCacheConfig(cfg *CacheConfig) error {
	ttl, err := getEnvAsDuration("ZONE_CACHE_TTL", 0)
	if err != nil {
		return err
	}
	cfg.TTL = ttl
	return nil
}

func loadMetricsConfig(cfg *MetricsConfig) {
	namespace := os.Getenv("METRICS_NAMESPACE")
	if namespace == "" {
		namespace = "edge_redirects"
	}
	cfg.Namespace = namespace
}

// LoadStoreConfig loads only the sections needed to reach the zone store.
// The operator tooling uses it; no listener settings are required.
func LoadStoreConfig(logger *slog.Logger) (*Config, error) {
	godotenv.Load()

	if logger == nil {
		logger = slog.Default()
	}

	config := &Config{}

	if err := loadAppConfig(&config.App, logger); err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	loadStoreConfig(&config.Store, logger)
	loadRedisConfig(&config.Redis, logger)
	loadDatabaseConfig(&config.Database, logger)

	if err := config.validateStore(); err != nil {
		return nil, err
	}

	return config, nil
}

// ParseLogLevel maps LOG_LEVEL values to slog levels. Empty means info.
func ParseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", value)
}

// Helper functions

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsInt32(key string, defaultVal int32) int32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return int32(parsed)
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("30s") or whole seconds ("30")
func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Admin.Port != "" && c.Admin.Port == c.Server.Port {
		return fmt.Errorf("ADMIN_PORT must differ from PORT")
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if c.Origin.URL != "" {
		u, err := url.Parse(c.Origin.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("ORIGIN_URL must be an absolute URL, got %q", c.Origin.URL)
		}
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("ZONE_CACHE_TTL must not be negative")
	}

	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=%s", BackendRedis)
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DB_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	case BackendMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_BACKEND=%s is not allowed in production", BackendMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}
