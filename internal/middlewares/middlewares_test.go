package middlewares

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"edge_redirects/internal/observability"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggerRecordsRedirect(t *testing.T) {
	var buf bytes.Buffer
	handler := Logger(&LoggerConfig{Logger: jsonLogger(&buf), IncludeQueryParams: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "https://bar.com/")
			w.WriteHeader(http.StatusMovedPermanently)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "http://foo.com/old?x=1", nil)
	req = req.WithContext(observability.WithRequestID(req.Context(), "req-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json log line, got %q: %v", buf.String(), err)
	}

	if entry["level"] != "INFO" || entry["status"] != float64(301) {
		t.Fatalf("unexpected log entry %v", entry)
	}
	if entry["host"] != "foo.com" || entry["location"] != "https://bar.com/" || entry["query"] != "x=1" {
		t.Fatalf("unexpected log entry %v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request id in log entry, got %v", entry["request_id"])
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "INFO"},
		{http.StatusMethodNotAllowed, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		handler := Logger(&LoggerConfig{Logger: jsonLogger(&buf)})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}),
		)
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Fatalf("status %d: expected level %s, got %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestLoggerSkipPaths(t *testing.T) {
	var buf bytes.Buffer
	handler := Logger(&LoggerConfig{Logger: jsonLogger(&buf), SkipPaths: []string{"/health"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(&RecoveryConfig{Logger: jsonLogger(&buf), DisableStackTrace: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("recovery"), mark("request-id"), mark("logger"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "recovery,request-id,logger,handler" {
		t.Fatalf("unexpected middleware order %s", got)
	}
}
