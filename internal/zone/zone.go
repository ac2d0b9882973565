package zone

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// DefaultStatus is used when a rule does not declare a status code
const DefaultStatus = http.StatusMovedPermanently

// RuleKind tells how a rule's From pattern is evaluated
type RuleKind int

const (
	KindLiteral RuleKind = iota // exact path comparison
	KindRegex                   // From starts with '^'
)

func (k RuleKind) String() string {
	if k == KindRegex {
		return "regex"
	}
	return "literal"
}

// Config is the redirect description published for one registered domain
type Config struct {
	Name        string `json:"name"`
	Redirects   []Rule `json:"redirects"`
	Fallthrough bool   `json:"fallthrough"`
}

// Rule is one candidate redirect rule of a zone
type Rule struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Status        int    `json:"status,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	IncludeParams bool   `json:"includeParams,omitempty"`

	// Kind is derived from From when the zone is parsed
	Kind RuleKind `json:"-"`

	// Err is set when the rule can never match (bad pattern or status)
	Err error `json:"-"`

	re *regexp.Regexp
}

// Empty returns the zone used for hosts without a published description
func Empty() *Config {
	return &Config{Redirects: []Rule{}}
}

// Parse decodes a published zone record and compiles its rules
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode zone record: %w", err)
	}

	if cfg.Redirects == nil {
		cfg.Redirects = []Rule{}
	}

	for i := range cfg.Redirects {
		cfg.Redirects[i].compile()
	}

	return cfg, nil
}

func (r *Rule) compile() {
	r.Kind = KindLiteral
	if strings.HasPrefix(r.From, "^") {
		r.Kind = KindRegex
	}

	if r.Status == 0 {
		r.Status = DefaultStatus
	}
	if !isRedirectStatus(r.Status) {
		r.Err = &RuleError{Reason: ReasonStatus, From: r.From, Err: fmt.Errorf("status %d is not a redirect status", r.Status)}
		return
	}

	if r.Kind != KindRegex {
		return
	}

	pattern := r.From
	if !r.CaseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		r.Err = &RuleError{Reason: ReasonPattern, From: r.From, Err: err}
		return
	}
	r.re = re
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Valid reports whether the rule can take part in matching
func (r *Rule) Valid() bool {
	return r.Err == nil
}

// Subject returns the string the rule is matched against
func (r *Rule) Subject(path, rawQuery string) string {
	if r.IncludeParams && rawQuery != "" {
		return path + "?" + rawQuery
	}
	return path
}

// Matches reports whether subject satisfies the rule
func (r *Rule) Matches(subject string) bool {
	if r.Err != nil {
		return false
	}

	if r.Kind == KindRegex {
		return r.re.MatchString(subject)
	}

	if r.CaseSensitive {
		return subject == r.From
	}
	return strings.EqualFold(subject, r.From)
}

// Target computes the redirect destination for a subject that matched the rule
func (r *Rule) Target(subject string) string {
	if r.Kind != KindRegex || r.re == nil {
		return r.To
	}
	return replaceFirst(r.re, subject, r.To)
}

// RuleError describes why a rule was rejected when its zone was parsed
type RuleError struct {
	Reason string
	From   string
	Err    error
}

// Rejection reasons reported by RuleError
const (
	ReasonPattern = "pattern"
	ReasonStatus  = "status"
)

func (e *RuleError) Error() string {
	return "invalid rule " + e.From + " (" + e.Reason + "): " + e.Err.Error()
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
