package zonefile

import (
	"path/filepath"
	"strings"
	"testing"

	"edge_redirects/internal/zone"
)

func TestLoadDir(t *testing.T) {
	entries, err := LoadDir(filepath.Join("testdata", "zones"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Domain != "example.com" || entries[1].Domain != "static.example.net" {
		t.Fatalf("unexpected domains %s, %s", entries[0].Domain, entries[1].Domain)
	}

	example := entries[0]
	if example.Description.Name != "example.com" {
		t.Fatalf("expected name to default to the domain, got %q", example.Description.Name)
	}

	cfg, err := zone.Parse(example.Record)
	if err != nil {
		t.Fatalf("record does not parse: %v", err)
	}
	if len(cfg.Redirects) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Redirects))
	}
	if cfg.Redirects[0].Status != 302 || cfg.Redirects[1].Status != zone.DefaultStatus {
		t.Fatalf("unexpected statuses %d, %d", cfg.Redirects[0].Status, cfg.Redirects[1].Status)
	}
	if !cfg.Redirects[1].IncludeParams || cfg.Redirects[1].Kind != zone.KindRegex {
		t.Fatalf("unexpected regex rule %+v", cfg.Redirects[1])
	}
	if got := cfg.Redirects[1].Target("/news/42?x=1"); got != "https://example.org/articles/42?x=1" {
		t.Fatalf("unexpected target %q", got)
	}

	static, err := zone.Parse(entries[1].Record)
	if err != nil {
		t.Fatalf("record does not parse: %v", err)
	}
	if !static.Fallthrough || !static.Redirects[0].CaseSensitive {
		t.Fatalf("json description options were lost: %+v", static)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad", "typo.com.yaml"))
	if err == nil || !strings.Contains(err.Error(), "casesensitive") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty redirects", "name: a.com\n", false},
		{"flow json", `{"redirects":[{"from":"/a","to":"/b"}]}`, false},
		{"empty document", "", true},
		{"missing to", "redirects:\n  - from: /a\n", true},
		{"missing from", "redirects:\n  - to: /a\n", true},
		{"wrong type", "redirects:\n  - from: /a\n    to: /b\n    status: moved\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if desc.Redirects == nil {
				t.Fatalf("redirects must never be nil")
			}
		})
	}
}

func TestDomainFromPath(t *testing.T) {
	tests := map[string]string{
		"zones/Foo.com.yaml":  "foo.com",
		"wiley.co.uk.yml":     "wiley.co.uk",
		"/etc/zones/a.b.json": "a.b",
	}
	for path, want := range tests {
		got, ok := DomainFromPath(path)
		if !ok || got != want {
			t.Fatalf("%s: expected %q, got %q (%v)", path, want, got, ok)
		}
	}

	if _, ok := DomainFromPath("notes.txt"); ok {
		t.Fatalf("expected unsupported extension")
	}
}

func TestLoadAndRecords(t *testing.T) {
	entries, err := Load(
		filepath.Join("testdata", "zones"),
		filepath.Join("testdata", "zones", "example.com.yaml"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	records := Records(entries)
	if len(records) != 2 {
		t.Fatalf("expected 2 distinct domains, got %d", len(records))
	}

	if _, err := Load(filepath.Join("testdata", "missing")); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestRecordRoundTripThroughYAML(t *testing.T) {
	entry, err := LoadFile(filepath.Join("testdata", "zones", "example.com.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc, err := FromRecord(entry.Record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf strings.Builder
	if err := desc.WriteYAML(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "includeParams: true") {
		t.Fatalf("expected authored option names in output:\n%s", buf.String())
	}

	again, err := Decode(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("written yaml does not decode: %v", err)
	}
	record, err := again.Record()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(record) != string(entry.Record) {
		t.Fatalf("record changed:\n%s\n%s", record, entry.Record)
	}
}
