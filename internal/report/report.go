// Package report renders one assessment as an .xlsx workbook.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetSummary  = "Summary"
	SheetReadings = "Readings"
	SheetFactors  = "Risk Factors"
	SheetWarnings = "Warnings"
)

var (
	readingsHeader = []string{"Reading", "Value", "Unit", "Entered", "Category", "Severity", "Source"}
	factorsHeader  = []string{"Factor", "Present", "Weight", "Description"}
	warningsHeader = []string{"Code", "Level", "Reading", "Value", "Message", "Recommendations"}
)

// Render builds the workbook for res.
func Render(res *engine.AssessmentResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetReadings, SheetFactors, SheetWarnings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &writer{f: f, header: headerStyle}
	w.summary(res)
	w.readings(res)
	w.factors(res)
	w.warnings(res)
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writer keeps the first error so the sheet builders read straight through.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, n, err)
	}
}

func (w *writer) headerRow(sheet string, names []string, widths ...float64) {
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(names), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("failed to style %s header: %w", sheet, err)
		return
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			w.err = fmt.Errorf("failed to set column width: %w", err)
			return
		}
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		w.err = fmt.Errorf("failed to freeze panes: %w", err)
	}
}

func (w *writer) summary(res *engine.AssessmentResult) {
	const s = SheetSummary
	n := 1
	line := func(label string, value any) {
		w.row(s, n, label, value)
		n++
	}

	line("Metric", res.Metric)
	if res.Category != nil {
		line("Category", res.Category.Label)
		line("Severity", string(res.Category.Severity))
	}
	if res.Risk != nil {
		line("Risk score", res.Risk.Score)
		line("Risk tier", res.Risk.Tier)
	}
	line("Priority", string(res.Treatment.Priority))
	line("Basis", res.Treatment.Basis)
	if res.Treatment.Overridden {
		line("Overridden", "Yes")
	}
	line("Summary", res.Treatment.Narrative)
	for i, r := range res.Treatment.Recommendations {
		label := ""
		if i == 0 {
			label = "Recommendations"
		}
		line(label, r)
	}
	if w.err == nil {
		if err := w.f.SetColWidth(s, "A", "A", 18); err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(s, "B", "B", 80)
	}
}

func (w *writer) readings(res *engine.AssessmentResult) {
	const s = SheetReadings
	w.headerRow(s, readingsHeader, 30, 12, 10, 16, 28, 10, 12)
	n := 2
	add := func(r engine.Reading, source string) {
		entered, label, severity := "", "", ""
		if r.Entered != nil {
			entered = fmt.Sprintf("%s %s", formatValue(r.Entered.Value), r.Entered.Unit)
		}
		if r.Category != nil {
			label, severity = r.Category.Label, string(r.Category.Severity)
		}
		w.row(s, n, string(r.Kind), round(r.Value), string(r.Unit), entered, label, severity, source)
		n++
	}
	for _, r := range res.Readings {
		source := "measured"
		switch {
		case r.Estimated:
			source = "estimated"
		case r.Derived:
			source = "derived"
		}
		add(r, source)
	}
	for _, r := range res.Composites {
		add(r, "composite")
	}
	for _, u := range res.Unavailable {
		w.row(s, n, string(u.Kind), "", "", "", "Unavailable: "+u.Reason, "", u.Code)
		n++
	}
}

func (w *writer) factors(res *engine.AssessmentResult) {
	const s = SheetFactors
	w.headerRow(s, factorsHeader, 24, 10, 10, 50)
	if res.Risk == nil {
		return
	}
	for i, f := range res.Risk.Factors {
		present := "No"
		if f.Present {
			present = "Yes"
		}
		w.row(s, i+2, f.Name, present, f.ImpactWeight, f.Description)
	}
}

func (w *writer) warnings(res *engine.AssessmentResult) {
	const s = SheetWarnings
	w.headerRow(s, warningsHeader, 24, 10, 24, 10, 60, 60)
	for i, fl := range res.Flags {
		w.row(s, i+2, fl.Code, string(fl.Level), string(fl.Kind), round(fl.Value), fl.Message, strings.Join(fl.Recommendations, "\n"))
	}
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatValue(v float64) string {
	return fmt.Sprintf("%g", round(v))
}
