package middlewares

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"edge_redirects/internal/observability"
)

// RecoveryConfig holds configuration for recovery middleware
type RecoveryConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// DisableStackTrace disables stack trace in panic recovery
	// Default: false
	DisableStackTrace bool

	// Recovery function that writes the response after a panic
	RecoveryHandler func(w http.ResponseWriter, r *http.Request, err interface{})
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:            nil,
		DisableStackTrace: false,
		RecoveryHandler:   defaultRecoveryHandler,
	}
}

// defaultRecoveryHandler answers with a bare plain-text 500
func defaultRecoveryHandler(w http.ResponseWriter, r *http.Request, err interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("Internal Server Error"))
}

// Recovery returns a recovery middleware that recovers from panics
func Recovery(config *RecoveryConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	if config.RecoveryHandler == nil {
		config.RecoveryHandler = defaultRecoveryHandler
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logAttrs := []any{
					"method", r.Method,
					"host", r.Host,
					"path", r.URL.Path,
					"client_ip", r.RemoteAddr,
					"error", fmt.Sprintf("%v", err),
				}

				if requestID := observability.GetRequestID(r.Context()); requestID != "" {
					logAttrs = append(logAttrs, "request_id", requestID)
				}

				if !config.DisableStackTrace {
					logAttrs = append(logAttrs, "stack", string(debug.Stack()))
				}

				logger.Error("panic recovered", logAttrs...)

				config.RecoveryHandler(w, r, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
