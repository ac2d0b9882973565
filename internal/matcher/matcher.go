// Package matcher selects the redirect rule that applies to a request.
package matcher

import (
	"errors"
	"log/slog"

	"edge_redirects/internal/observability"
	"edge_redirects/internal/zone"
)

// Matcher evaluates zone rules in declaration order
type Matcher struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a matcher. Both arguments may be nil.
func New(logger *slog.Logger, metrics *observability.Metrics) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger, metrics: metrics}
}

// Result is the outcome of matching one request
type Result struct {
	Rule    *zone.Rule
	Subject string // the string the rule matched against
}

// Target returns the redirect destination of the matched rule
func (r *Result) Target() string {
	return r.Rule.Target(r.Subject)
}

// Match returns the first rule of cfg matching path and rawQuery, or nil.
// Rules that can never match are skipped and reported.
func (m *Matcher) Match(cfg *zone.Config, path, rawQuery string) *Result {
	if cfg == nil {
		return nil
	}

	for i := range cfg.Redirects {
		rule := &cfg.Redirects[i]

		if !rule.Valid() {
			m.reportInvalid(cfg, i, rule)
			continue
		}

		subject := rule.Subject(path, rawQuery)
		if rule.Matches(subject) {
			return &Result{Rule: rule, Subject: subject}
		}
	}

	return nil
}

func (m *Matcher) reportInvalid(cfg *zone.Config, index int, rule *zone.Rule) {
	reason := "unknown"
	var ruleErr *zone.RuleError
	if errors.As(rule.Err, &ruleErr) {
		reason = ruleErr.Reason
	}

	m.metrics.RecordInvalidRule(reason)
	m.logger.Warn("skipping invalid redirect rule",
		"zone", cfg.Name,
		"rule_index", index,
		"from", rule.From,
		"reason", reason,
		"error", rule.Err,
	)
}
