// Package resolver maps request hostnames to the zone published for the
// most specific registered suffix of that hostname.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"edge_redirects/internal/observability"
	"edge_redirects/internal/store"
	"edge_redirects/internal/zone"

	"golang.org/x/net/publicsuffix"
)

// Resolver climbs hostname suffixes against a zone store
type Resolver struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Config holds resolver dependencies
type Config struct {
	// Store holding published zone records (required)
	Store store.Store

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Metrics for lookup results (optional)
	Metrics *observability.Metrics
}

// New creates a resolver
func New(config Config) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:   config.Store,
		logger:  logger,
		metrics: config.Metrics,
	}
}

// Resolve returns the zone for hostname, or an empty zone when no suffix of
// it is registered. It never fails: store errors count as a miss at that level.
func (r *Resolver) Resolve(ctx context.Context, hostname string) *zone.Config {
	for _, candidate := range Candidates(hostname) {
		cfg, ok := r.lookup(ctx, candidate)
		if ok {
			r.logger.Debug("zone resolved", "hostname", hostname, "zone", candidate)
			return cfg
		}
	}

	return zone.Empty()
}

func (r *Resolver) lookup(ctx context.Context, key string) (*zone.Config, bool) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.metrics.RecordStoreLookup(observability.LookupMiss)
			return nil, false
		}
		r.metrics.RecordStoreLookup(observability.LookupError)
		r.logger.Warn("zone lookup failed, continuing with parent domain", "key", key, "error", err)
		return nil, false
	}

	if len(data) == 0 {
		r.metrics.RecordStoreLookup(observability.LookupMiss)
		return nil, false
	}

	cfg, err := zone.Parse(data)
	if err != nil {
		r.metrics.RecordStoreLookup(observability.LookupUndecodable)
		r.logger.Error("zone record is not decodable, continuing with parent domain", "key", key, "error", err)
		return nil, false
	}

	r.metrics.RecordStoreLookup(observability.LookupHit)
	return cfg, true
}

// Candidates lists the store keys tried for hostname, most specific first.
// A leading "www" label is dropped and the walk stops at the registrable
// domain, so public suffixes such as "com" or "co.uk" are never looked up.
func Candidates(hostname string) []string {
	host := Normalize(hostname)
	if host == "" || net.ParseIP(host) != nil {
		return nil
	}

	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return nil
	}

	labels := strings.Split(host, ".")
	if labels[0] == "www" && host != apex {
		labels = labels[1:]
	}

	apexLabels := strings.Count(apex, ".") + 1
	candidates := make([]string, 0, len(labels)-apexLabels+1)
	for i := 0; len(labels)-i >= apexLabels; i++ {
		candidates = append(candidates, strings.Join(labels[i:], "."))
	}

	return candidates
}

// Normalize lowercases hostname and strips any port and trailing dot
func Normalize(hostname string) string {
	host := strings.TrimSpace(hostname)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}
