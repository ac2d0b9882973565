package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"edge_redirects/internal/zone"
)

func TestExport(t *testing.T) {
	cfg, err := zone.Parse([]byte(`{"name":"foo.com","fallthrough":true,"redirects":[
		{"from":"/old.html","to":"https://bar.com/new.html","status":302},
		{"from":"^/(?=x)","to":"https://bar.com/"}
	]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	err = Export(&buf, []Zone{
		{Domain: "foo.com", Config: cfg},
		{Domain: "empty.org"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SummarySheet {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	rows, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 summary rows, got %d", len(rows))
	}
	if got := strings.Join(rows[1], ","); got != "foo.com,foo.com,2,1,TRUE,foo.com" {
		t.Fatalf("unexpected summary row %q", got)
	}

	rules, err := f.GetRows("foo.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected header and 2 rule rows, got %d", len(rules))
	}
	if rules[1][1] != "/old.html" || rules[1][4] != "302" || rules[1][3] != "literal" {
		t.Fatalf("unexpected rule row %v", rules[1])
	}
	if len(rules[2]) < 8 || rules[2][7] == "" {
		t.Fatalf("expected error column for invalid rule, got %v", rules[2])
	}

	empty, err := f.GetRows("empty.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 1 {
		t.Fatalf("expected only headers for empty zone, got %d rows", len(empty))
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{"zones": true}

	if got := SheetName("zones", used); got != "zones~2" {
		t.Fatalf("expected collision with summary sheet to be suffixed, got %q", got)
	}

	long := "a-really-long-subdomain.of.some.example.co.uk"
	first := SheetName(long, used)
	second := SheetName(long, used)
	if len(first) > maxSheetName || len(second) > maxSheetName {
		t.Fatalf("sheet names exceed limit: %q %q", first, second)
	}
	if first == second {
		t.Fatalf("expected distinct names, got %q twice", first)
	}

	if got := SheetName("a:b/c", used); got != "a_b_c" {
		t.Fatalf("expected invalid characters replaced, got %q", got)
	}
}
