package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config holds HTTP server configuration
type Config struct {
	// Server address (host:port)
	Addr string

	// Name identifies the listener in logs and shutdown
	Name string

	// Logger for structured logging
	Logger *slog.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Pass-through responses stream the origin body, so keep it above the origin timeout.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
	MaxHeaderBytes int

	// TLS configuration
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig returns a default server configuration
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:           addr,
		Name:           "http-server",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}
}

// AdminConfig returns the configuration of the metrics and health listener
func AdminConfig(addr string) *Config {
	return &Config{
		Addr:           addr,
		Name:           "admin-server",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}

// Server is an http.Server together with how it should listen
type Server struct {
	*http.Server

	name     string
	certFile string
	keyFile  string
	logger   *slog.Logger
}

// New creates a new HTTP server with the given configuration
func New(handler http.Handler, config *Config) *Server {
	if config == nil {
		config = DefaultConfig(":8080")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := config.Name
	if name == "" {
		name = "http-server"
	}

	srv := &http.Server{
		Addr:           config.Addr,
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("http server configured",
		"server", name,
		"addr", config.Addr,
		"tls", config.TLSCertFile != "" && config.TLSKeyFile != "",
		"read_timeout", config.ReadTimeout.String(),
		"write_timeout", config.WriteTimeout.String(),
		"idle_timeout", config.IdleTimeout.String(),
	)

	return &Server{
		Server:   srv,
		name:     name,
		certFile: config.TLSCertFile,
		keyFile:  config.TLSKeyFile,
		logger:   logger,
	}
}

// Name identifies the server
func (s *Server) Name() string {
	return s.name
}

// TLS reports whether the server terminates TLS itself
func (s *Server) TLS() bool {
	return s.certFile != "" && s.keyFile != ""
}

// ListenAndServe serves plain HTTP or HTTPS depending on the configuration.
// It returns nil once the server has been shut down.
func (s *Server) ListenAndServe() error {
	var err error
	if s.TLS() {
		s.logger.Info("starting https server", "server", s.name, "addr", s.Addr)
		err = s.Server.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		s.logger.Info("starting http server", "server", s.name, "addr", s.Addr)
		err = s.Server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// Run starts every server and blocks until a shutdown signal arrives or a
// server fails, then shuts the servers and resources down
func Run(servers []*Server, resources []Resource, config *ShutdownConfig) error {
	sm := NewShutdownManager(config)

	// servers are registered last so they stop before the resources they use
	for _, resource := range resources {
		sm.Register(resource)
	}
	for _, s := range servers {
		sm.Register(NewHTTPServerResource(s.Name(), s.Server))
	}

	failed := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *Server) {
			if err := s.ListenAndServe(); err != nil {
				failed <- err
			}
		}(s)
	}

	return sm.Wait(failed)
}
