package zone

import (
	"errors"
	"net/http"
	"testing"
)

func mustParse(t *testing.T, data string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestParseDefaults(t *testing.T) {
	cfg := mustParse(t, `{"name":"foo.com","redirects":[{"from":"/a","to":"https://bar.com/a"},{"from":"^/b(.*)","to":"https://bar.com/b$1","status":302}]}`)

	if cfg.Name != "foo.com" {
		t.Fatalf("expected name foo.com, got %q", cfg.Name)
	}
	if cfg.Fallthrough {
		t.Fatalf("expected fallthrough to default to false")
	}
	if len(cfg.Redirects) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Redirects))
	}

	lit := cfg.Redirects[0]
	if lit.Kind != KindLiteral || lit.Status != http.StatusMovedPermanently {
		t.Fatalf("unexpected literal rule: kind=%s status=%d", lit.Kind, lit.Status)
	}
	if lit.CaseSensitive || lit.IncludeParams {
		t.Fatalf("expected flags to default to false")
	}

	rx := cfg.Redirects[1]
	if rx.Kind != KindRegex || rx.Status != http.StatusFound {
		t.Fatalf("unexpected regex rule: kind=%s status=%d", rx.Kind, rx.Status)
	}
}

func TestParseMissingRedirects(t *testing.T) {
	cfg := mustParse(t, `{"name":"wiley.com","fallthrough":true}`)
	if cfg.Redirects == nil || len(cfg.Redirects) != 0 {
		t.Fatalf("expected empty redirects, got %#v", cfg.Redirects)
	}
	if !cfg.Fallthrough {
		t.Fatalf("expected fallthrough")
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"redirects":`)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmpty(t *testing.T) {
	cfg := Empty()
	if cfg.Fallthrough || cfg.Redirects == nil || len(cfg.Redirects) != 0 {
		t.Fatalf("unexpected empty zone %#v", cfg)
	}
}

func TestInvalidRules(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[
		{"from":"^/(?=x)","to":"/"},
		{"from":"/a","to":"/b","status":200},
		{"from":"/c","to":"/d","status":307}
	]}`)

	var re *RuleError
	if !errors.As(cfg.Redirects[0].Err, &re) || re.Reason != ReasonPattern {
		t.Fatalf("expected pattern error, got %v", cfg.Redirects[0].Err)
	}
	if !errors.As(cfg.Redirects[1].Err, &re) || re.Reason != ReasonStatus {
		t.Fatalf("expected status error, got %v", cfg.Redirects[1].Err)
	}
	if !cfg.Redirects[2].Valid() {
		t.Fatalf("expected 307 rule to be valid: %v", cfg.Redirects[2].Err)
	}

	if cfg.Redirects[0].Matches("/x") {
		t.Fatalf("invalid rule must not match")
	}
	if cfg.Redirects[1].Matches("/a") {
		t.Fatalf("invalid rule must not match")
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name          string
		includeParams bool
		query         string
		want          string
	}{
		{"path only", false, "foo=bar", "/p.html"},
		{"with query", true, "foo=123&bar=456", "/p.html?foo=123&bar=456"},
		{"empty query", true, "", "/p.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rule{IncludeParams: tt.includeParams}
			if got := r.Subject("/p.html", tt.query); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMatchesLiteral(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[
		{"from":"/1234a.html","to":"x"},
		{"from":"/1234C.html","to":"x","caseSensitive":true}
	]}`)

	insensitive := &cfg.Redirects[0]
	if !insensitive.Matches("/1234A.html") || !insensitive.Matches("/1234a.html") {
		t.Fatalf("expected case-insensitive literal match")
	}
	if insensitive.Matches("/1234a.htmlx") || insensitive.Matches("/1234a") {
		t.Fatalf("literal match must be exact, not prefix")
	}

	sensitive := &cfg.Redirects[1]
	if !sensitive.Matches("/1234C.html") {
		t.Fatalf("expected exact case match")
	}
	if sensitive.Matches("/1234c.html") {
		t.Fatalf("case-sensitive rule matched different casing")
	}
}

func TestMatchesRegex(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[
		{"from":"^/test./xyz","to":"x"},
		{"from":"^/testC/xyz","to":"x","caseSensitive":true}
	]}`)

	rx := &cfg.Redirects[0]
	if !rx.Matches("/testB/xyz") || !rx.Matches("/TESTb/XYZ") {
		t.Fatalf("expected case-insensitive regex match")
	}
	if !rx.Matches("/testB/xyz/more") {
		t.Fatalf("expected search semantics to allow trailing text")
	}

	cs := &cfg.Redirects[1]
	if cs.Matches("/testc/xyz") {
		t.Fatalf("case-sensitive regex matched different casing")
	}
}

func TestTarget(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[
		{"from":"/lit","to":"https://bar.com/$1"},
		{"from":"^/(test.)/xyz","to":"https://bar.com/$1/xyz"},
		{"from":"^/params1c\\.html","to":"https://bar.com/params1c.html"},
		{"from":"^/params2a\\.html\\?.*foo=(\\d+).*$","to":"https://bar.com/params2a/foo/$1"},
		{"from":"^/(?P<section>[a-z]+)/","to":"https://bar.com/$<section>/"}
	]}`)

	tests := []struct {
		rule    int
		subject string
		want    string
	}{
		{0, "/lit", "https://bar.com/$1"},
		{1, "/testB/xyz", "https://bar.com/testB/xyz"},
		{2, "/params1c.html?foo=bar", "https://bar.com/params1c.html?foo=bar"},
		{3, "/params2a.html?bar=456&foo=123&something=else", "https://bar.com/params2a/foo/123"},
		{4, "/news/item", "https://bar.com/news/item"},
	}

	for _, tt := range tests {
		r := &cfg.Redirects[tt.rule]
		if got := r.Target(tt.subject); got != tt.want {
			t.Fatalf("rule %d: expected %q, got %q", tt.rule, tt.want, got)
		}
	}
}
