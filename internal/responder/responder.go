// Package responder turns a matching result into the response sent to the
// client: a redirect, the origin's own response, or a plain 404.
package responder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"edge_redirects/internal/matcher"
	"edge_redirects/internal/zone"
)

// Kind identifies which branch produced a response
type Kind int

const (
	KindRedirect Kind = iota
	KindPassthrough
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindPassthrough:
		return "passthrough"
	default:
		return "not_found"
	}
}

// NotFoundBody is the fixed body of not-found responses
const NotFoundBody = "Not Found"

// Response is a fully decided response. Body may be nil.
type Response struct {
	Kind   Kind
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Write sends the response to w and closes the body
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(r.Status)

	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	if _, err := io.Copy(w, r.Body); err != nil {
		return fmt.Errorf("failed to relay response body: %w", err)
	}
	return nil
}

// Redirect builds a redirect response
func Redirect(status int, location string) *Response {
	header := make(http.Header)
	header.Set("Location", location)
	header.Set("Content-Length", "0")
	return &Response{Kind: KindRedirect, Status: status, Header: header}
}

// NotFound builds the fixed not-found response
func NotFound() *Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{
		Kind:   KindNotFound,
		Status: http.StatusNotFound,
		Header: header,
		Body:   io.NopCloser(strings.NewReader(NotFoundBody)),
	}
}

// Origin fetches the response the origin server gives for a request
type Origin interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// OriginError reports a failed pass-through fetch
type OriginError struct {
	Host string
	Err  error
}

func (e *OriginError) Error() string {
	return "origin fetch for " + e.Host + " failed: " + e.Err.Error()
}

func (e *OriginError) Unwrap() error {
	return e.Err
}

// Builder decides responses
type Builder struct {
	origin Origin
	logger *slog.Logger
}

// NewBuilder creates a builder forwarding pass-through traffic to origin
func NewBuilder(origin Origin, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{origin: origin, logger: logger}
}

// Build returns the response for a request given the rule that matched it,
// if any. Origin failures are returned as *OriginError and never retried.
func (b *Builder) Build(ctx context.Context, match *matcher.Result, cfg *zone.Config, req *http.Request) (*Response, error) {
	if match != nil {
		return Redirect(match.Rule.Status, match.Target()), nil
	}

	if cfg != nil && cfg.Fallthrough {
		return b.Passthrough(ctx, req)
	}

	return NotFound(), nil
}

// Passthrough relays the origin's response to req unmodified
func (b *Builder) Passthrough(ctx context.Context, req *http.Request) (*Response, error) {
	if b.origin == nil {
		return nil, &OriginError{Host: req.Host, Err: fmt.Errorf("no origin configured")}
	}

	b.logger.Debug("passing request through to origin", "host", req.Host, "path", req.URL.Path)

	resp, err := b.origin.Fetch(ctx, req)
	if err != nil {
		return nil, &OriginError{Host: req.Host, Err: err}
	}

	header := resp.Header.Clone()
	removeHopHeaders(header)

	return &Response{
		Kind:   KindPassthrough,
		Status: resp.StatusCode,
		Header: header,
		Body:   resp.Body,
	}, nil
}
