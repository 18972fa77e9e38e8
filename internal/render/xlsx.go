package render

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildXLSX renders the spreadsheet variant of the monthly report.
func BuildXLSX(c *Context) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, &RenderError{Err: err}
	}
	lb := c.labels()

	f := excelize.NewFile()
	summarySheet := "summary"
	sessionsSheet := "sessions"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, &RenderError{Err: err}
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return nil, &RenderError{Err: err}
	}

	_ = f.SetCellValue(summarySheet, "A1", lb.Title)
	_ = f.SetCellValue(summarySheet, "A3", lb.Period)
	_ = f.SetCellValue(summarySheet, "B3", c.PeriodLabel)
	_ = f.SetCellValue(summarySheet, "A4", lb.Generated)
	_ = f.SetCellValue(summarySheet, "B4", c.GeneratedAt.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", lb.Sessions)
	_ = f.SetCellValue(summarySheet, "B5", c.Totals.SessionCount)
	_ = f.SetCellValue(summarySheet, "A6", lb.Energy)
	_ = f.SetCellValue(summarySheet, "B6", c.Totals.TotalEnergyKWh.InexactFloat64())
	_ = f.SetCellValue(summarySheet, "A7", lb.Cost)
	_ = f.SetCellValue(summarySheet, "B7", c.Totals.TotalCost.InexactFloat64())

	_ = f.SetCellValue(sessionsSheet, "A1", lb.Date)
	_ = f.SetCellValue(sessionsSheet, "B1", lb.Duration)
	_ = f.SetCellValue(sessionsSheet, "C1", lb.Loadpoint)
	_ = f.SetCellValue(sessionsSheet, "D1", lb.Vehicle)
	_ = f.SetCellValue(sessionsSheet, "E1", lb.Energy)
	_ = f.SetCellValue(sessionsSheet, "F1", lb.Cost)
	for i, s := range c.Sessions {
		row := i + 2
		cost := s.FormattedCost
		if !s.Billed && cost == "" {
			cost = lb.NotBilled
		}
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("A%d", row), s.FormattedStart)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("B%d", row), s.FormattedDuration)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("C%d", row), s.Loadpoint)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("D%d", row), s.Vehicle)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("E%d", row), s.EnergyKWh.InexactFloat64())
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("F%d", row), cost)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}
