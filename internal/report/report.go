// Package report renders zone rule tables as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"edge_redirects/internal/zone"
)

// SummarySheet lists every exported zone
const SummarySheet = "Zones"

// maximum sheet name length accepted by Excel
const maxSheetName = 31

var ruleHeaders = []string{
	"#", "From", "To", "Kind", "Status", "Case Sensitive", "Include Params", "Error",
}

var summaryHeaders = []string{
	"Domain", "Name", "Rules", "Invalid Rules", "Fallthrough", "Sheet",
}

// Zone is one published zone to export
type Zone struct {
	Domain string
	Config *zone.Config
}

// Export writes a workbook with a summary sheet and one rule sheet per zone
func Export(w io.Writer, zones []Zone) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SummarySheet)
	if err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeaders(f, SummarySheet, summaryHeaders, header); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(SummarySheet): true}
	for i, z := range zones {
		cfg := z.Config
		if cfg == nil {
			cfg = zone.Empty()
		}

		sheet := SheetName(z.Domain, used)

		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", z.Domain, err)
		}
		if err := writeHeaders(f, sheet, ruleHeaders, header); err != nil {
			return err
		}

		invalid := 0
		for j, rule := range cfg.Redirects {
			row := j + 2
			errText := ""
			if !rule.Valid() {
				invalid++
				errText = rule.Err.Error()
			}

			values := []interface{}{
				j + 1, rule.From, rule.To, rule.Kind.String(), rule.Status,
				rule.CaseSensitive, rule.IncludeParams, errText,
			}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return fmt.Errorf("failed to write rule %d of %s: %w", j+1, z.Domain, err)
			}
		}

		f.SetColWidth(sheet, "A", "A", 5)
		f.SetColWidth(sheet, "B", "C", 45)
		f.SetColWidth(sheet, "D", "G", 14)
		f.SetColWidth(sheet, "H", "H", 40)

		summary := []interface{}{
			z.Domain, cfg.Name, len(cfg.Redirects), invalid, cfg.Fallthrough, sheet,
		}
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+2), &summary); err != nil {
			return fmt.Errorf("failed to write summary for %s: %w", z.Domain, err)
		}
	}

	f.SetColWidth(SummarySheet, "A", "B", 30)
	f.SetColWidth(SummarySheet, "C", "F", 14)

	return f.Write(w)
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, h)
	}

	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

// SheetName derives a valid sheet name from a domain and marks it used.
// Sheet names are compared case-insensitively.
func SheetName(domain string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, domain)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "zone"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
