package matcher

import (
	"io"
	"log/slog"
	"testing"

	"edge_redirects/internal/zone"
)

func newTestMatcher() *Matcher {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func mustParse(t *testing.T, data string) *zone.Config {
	t.Helper()
	cfg, err := zone.Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

const barZone = `{
	"name": "bar.com",
	"redirects": [
		{"from": "/1234a.html", "to": "https://bar.com/1234a.html", "status": 301},
		{"from": "/1234C.html", "to": "https://bar.com/1234C.html", "caseSensitive": true},
		{"from": "^/(?=broken)", "to": "https://bar.com/never"},
		{"from": "^/test./xyz", "to": "https://bar.com/tested/xyz"},
		{"from": "^/params1b\\.html\\?foo=bar$", "to": "https://bar.com/params1b", "includeParams": true},
		{"from": "^/.*", "to": "https://www.bar.com/", "status": 302}
	]
}`

func TestMatchOrderAndSemantics(t *testing.T) {
	cfg := mustParse(t, barZone)
	m := newTestMatcher()

	tests := []struct {
		name    string
		path    string
		query   string
		wantTo  string
		subject string
	}{
		{"literal case-insensitive", "/1234A.html", "", "https://bar.com/1234a.html", "/1234A.html"},
		{"literal case-sensitive exact", "/1234C.html", "", "https://bar.com/1234C.html", "/1234C.html"},
		{"literal case-sensitive miss falls to catch-all", "/1234c.html", "", "https://www.bar.com/", "/1234c.html"},
		{"regex search ignores query", "/testB/xyz", "x=1", "https://bar.com/tested/xyz", "/testB/xyz"},
		{"include params", "/params1b.html", "foo=bar", "https://bar.com/params1b", "/params1b.html?foo=bar"},
		{"include params order sensitive", "/params1b.html", "x=1&foo=bar", "https://www.bar.com/", "/params1b.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(cfg, tt.path, tt.query)
			if res == nil {
				t.Fatalf("expected a match")
			}
			if res.Rule.To != tt.wantTo {
				t.Fatalf("expected rule to %q, got %q", tt.wantTo, res.Rule.To)
			}
			if res.Subject != tt.subject {
				t.Fatalf("expected subject %q, got %q", tt.subject, res.Subject)
			}
		})
	}
}

func TestMatchNone(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[{"from":"/a","to":"/b"}]}`)
	m := newTestMatcher()

	if res := m.Match(cfg, "/a/", ""); res != nil {
		t.Fatalf("literal rules must not prefix-match, got %+v", res.Rule)
	}
	if res := m.Match(zone.Empty(), "/a", ""); res != nil {
		t.Fatalf("empty zone must never match")
	}
	if res := m.Match(nil, "/a", ""); res != nil {
		t.Fatalf("nil zone must never match")
	}
}

func TestMatchSkipsInvalidRules(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[
		{"from":"^/(?<!x)a","to":"/bad"},
		{"from":"/a","to":"/also-bad","status":418},
		{"from":"/a","to":"/good"}
	]}`)
	m := newTestMatcher()

	res := m.Match(cfg, "/a", "")
	if res == nil || res.Rule.To != "/good" {
		t.Fatalf("expected the first valid rule to match, got %+v", res)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	cfg := mustParse(t, barZone)
	m := newTestMatcher()

	first := m.Match(cfg, "/testb/XYZ", "")
	for i := 0; i < 5; i++ {
		if again := m.Match(cfg, "/testb/XYZ", ""); again.Rule != first.Rule {
			t.Fatalf("match changed between evaluations")
		}
	}
}

func TestResultTarget(t *testing.T) {
	cfg := mustParse(t, `{"redirects":[{"from":"^/(test.)/xyz","to":"https://bar.com/$1/xyz"}]}`)
	m := newTestMatcher()

	res := m.Match(cfg, "/testB/xyz", "")
	if res == nil {
		t.Fatalf("expected a match")
	}
	if got := res.Target(); got != "https://bar.com/testB/xyz" {
		t.Fatalf("expected case-preserved target, got %q", got)
	}
}
