package zone

import (
	"regexp"
	"testing"
)

func TestReplaceFirst(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		tmpl    string
		want    string
	}{
		{"no groups", `^/a`, "/a/b", "/x", "/x/b"},
		{"group", `^/(\w+)/`, "/news/1", "/n/$1/", "/n/news/1"},
		{"group followed by digit", `^/(a)`, "/a", "$10", "a0"},
		{"two digit group", `^/(a)(b)(c)(d)(e)(f)(g)(h)(i)(j)(k)`, "/abcdefghijk", "$11", "k"},
		{"dollar zero literal", `^/a`, "/a", "$0", "$0"},
		{"escaped dollar", `^/a`, "/a", "$$1", "$1"},
		{"whole match", `^/a+`, "/aaa/b", "[$&]", "[/aaa]/b"},
		{"prefix and suffix", `b`, "abc", "($`|$')", "a(a|c)c"},
		{"missing group literal", `^/a`, "/a", "$2", "$2"},
		{"unmatched optional group", `^/a(x)?`, "/a", "[$1]", "[]"},
		{"named group", `^/(?P<id>\d+)`, "/42", "id=$<id>", "id=42"},
		{"named syntax without names", `^/(\d+)`, "/42", "$<id>", "$<id>"},
		{"trailing dollar", `^/a`, "/a", "x$", "x$"},
		{"no match", `^/z`, "/a", "/x", "/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := regexp.MustCompile(tt.pattern)
			if got := replaceFirst(re, tt.subject, tt.tmpl); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
