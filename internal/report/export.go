// AngelaMos | 2026
// export.go

package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	byKindSheet  = "By Kind"
)

// FinancialXLSX renders a financial report as a two-sheet workbook.
func FinancialXLSX(rep *FinancialReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(byKindSheet); err != nil {
		return nil, fmt.Errorf("create by-kind sheet: %w", err)
	}

	summary := [][2]any{
		{"Financial Report", ""},
		{"Generated", rep.GeneratedAt.Format(time.RFC3339)},
		{"From", formatBound(rep.Range.From)},
		{"To", formatBound(rep.Range.To)},
		{"Income", rep.Income.InexactFloat64()},
		{"Payouts", rep.Payouts.InexactFloat64()},
		{"Net", rep.Net.InexactFloat64()},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row[0], row[1]); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, byKindSheet, 1, "Kind", "Count", "Total"); err != nil {
		return nil, err
	}
	for i, t := range rep.ByKind {
		if err := setRow(f, byKindSheet, i+2, string(t.Kind), t.Count, t.Total.InexactFloat64()); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(time.DateOnly)
}
