package responder

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// hopHeaders are connection-scoped and never forwarded
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, field := range h.Values("Connection") {
		for _, name := range strings.Split(field, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// OriginConfig holds configuration for the HTTP origin client
type OriginConfig struct {
	// Base URL of the origin; only scheme and host are used
	URL string

	// Overall timeout per fetch. Zero leaves the request bounded only by
	// the inbound request's context.
	Timeout time.Duration

	// Transport overrides the default transport (tests)
	Transport http.RoundTripper

	// Logger for structured logging
	Logger *slog.Logger
}

// HTTPOrigin forwards pass-through requests to the origin server, keeping
// the client's Host header, path and query. Redirects are returned, not followed.
type HTTPOrigin struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewHTTPOrigin creates an origin client
func NewHTTPOrigin(config *OriginConfig) (*HTTPOrigin, error) {
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("origin URL cannot be empty")
	}

	base, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("origin URL must be absolute: %q", config.URL)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HTTPOrigin{
		base: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}, nil
}

// Fetch issues req against the origin
func (o *HTTPOrigin) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	target := *o.base
	target.Path = req.URL.Path
	target.RawPath = req.URL.RawPath
	target.RawQuery = req.URL.RawQuery
	target.Fragment = ""

	var body = req.Body
	if req.ContentLength == 0 {
		body = nil
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build origin request: %w", err)
	}

	out.Header = req.Header.Clone()
	removeHopHeaders(out.Header)
	out.Host = req.Host
	out.ContentLength = req.ContentLength

	if ip, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		if prior := out.Header.Values("X-Forwarded-For"); len(prior) > 0 {
			ip = strings.Join(prior, ", ") + ", " + ip
		}
		out.Header.Set("X-Forwarded-For", ip)
	}

	o.logger.Debug("forwarding request to origin",
		"method", req.Method,
		"host", req.Host,
		"origin", o.base.Host,
	)

	return o.client.Do(out)
}
