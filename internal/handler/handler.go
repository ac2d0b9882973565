// Package handler is the HTTP entry point of the redirect engine.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"edge_redirects/internal/matcher"
	"edge_redirects/internal/observability"
	"edge_redirects/internal/responder"
	"edge_redirects/internal/zone"
)

// ZoneResolver maps a hostname to its zone configuration
type ZoneResolver interface {
	Resolve(ctx context.Context, hostname string) *zone.Config
}

// Config holds the request handler's collaborators and switches
type Config struct {
	Resolver ZoneResolver
	Matcher  *matcher.Matcher
	Builder  *responder.Builder

	// HTTPSOnly passes every non-HTTPS request straight to the origin
	HTTPSOnly bool

	// TrustForwardedProto takes the scheme from X-Forwarded-Proto
	TrustForwardedProto bool

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Handler resolves, matches and answers every request it receives
type Handler struct {
	resolver            ZoneResolver
	matcher             *matcher.Matcher
	builder             *responder.Builder
	httpsOnly           bool
	trustForwardedProto bool
	logger              *slog.Logger
	metrics             *observability.Metrics
}

// New creates a request handler
func New(config Config) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := config.Matcher
	if m == nil {
		m = matcher.New(logger, config.Metrics)
	}

	return &Handler{
		resolver:            config.Resolver,
		matcher:             m,
		builder:             config.Builder,
		httpsOnly:           config.HTTPSOnly,
		trustForwardedProto: config.TrustForwardedProto,
		logger:              logger,
		metrics:             config.Metrics,
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With("request_id", observability.GetRequestID(ctx), "host", r.Host)

	if h.httpsOnly && h.scheme(r) != "https" {
		log.Info("not https, passing through", "path", r.URL.Path)
		resp, err := h.builder.Passthrough(ctx, r)
		if err == nil {
			h.metrics.RecordDecision(observability.OutcomeNotHTTPS)
		}
		h.respond(w, r, log, resp, err)
		return
	}

	cfg := h.resolver.Resolve(ctx, r.Host)
	path := r.URL.EscapedPath()
	match := h.matcher.Match(cfg, path, r.URL.RawQuery)

	resp, err := h.builder.Build(ctx, match, cfg, r)
	if err == nil {
		switch resp.Kind {
		case responder.KindRedirect:
			log.Info("redirect",
				"zone", cfg.Name,
				"from", match.Rule.From,
				"subject", match.Subject,
				"location", resp.Header.Get("Location"),
				"status", resp.Status,
			)
			h.metrics.RecordDecision(observability.OutcomeRedirect)
		case responder.KindPassthrough:
			log.Info("no match, passing through", "zone", cfg.Name, "path", path, "status", resp.Status)
			h.metrics.RecordDecision(observability.OutcomePassthrough)
		default:
			log.Info("no match, not found", "zone", cfg.Name, "path", path)
			h.metrics.RecordDecision(observability.OutcomeNotFound)
		}
	}

	h.respond(w, r, log, resp, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, log *slog.Logger, resp *responder.Response, err error) {
	if err != nil {
		log.Error("origin fetch failed", "path", r.URL.Path, "error", err)
		h.metrics.RecordOriginError()
		h.metrics.RecordDecision(observability.OutcomeOriginFailure)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if err := resp.Write(w); err != nil {
		log.Warn("failed to write response", "error", err)
	}
}

func (h *Handler) scheme(r *http.Request) string {
	if h.trustForwardedProto {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			first, _, _ := strings.Cut(proto, ",")
			return strings.ToLower(strings.TrimSpace(first))
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
