package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// BuildPDF renders the monthly report PDF.
func BuildPDF(c *Context) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, &RenderError{Err: err}
	}
	lb := c.labels()

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr(lb.Title))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(c.Sender.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(c.Sender.Street))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(c.Sender.City))
	pdf.Ln(8)

	pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", lb.Period, c.PeriodLabel)))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", lb.Generated, c.GeneratedAt.Format("2006-01-02"))))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %d", lb.Sessions, c.Totals.SessionCount)))
	pdf.Ln(8)

	// Sessions table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, tr(lb.Date), "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, tr(lb.Duration), "1", 0, "C", false, 0, "")
	pdf.CellFormat(38, 6, tr(lb.Loadpoint), "1", 0, "C", false, 0, "")
	pdf.CellFormat(38, 6, tr(lb.Vehicle), "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, tr(lb.Energy), "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, tr(lb.Cost), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(c.Sessions) == 0 {
		pdf.CellFormat(188, 6, tr(lb.NoSessions), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	for _, s := range c.Sessions {
		cost := s.FormattedCost
		if !s.Billed && cost == "" {
			cost = lb.NotBilled
		}
		pdf.CellFormat(30, 6, tr(s.FormattedStart), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, tr(s.FormattedDuration), "1", 0, "C", false, 0, "")
		pdf.CellFormat(38, 6, tr(s.Loadpoint), "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 6, tr(s.Vehicle), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, tr(s.FormattedEnergy), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, tr(cost), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(128, 6, tr(lb.Total), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, tr(c.TotalEnergy), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, tr(c.TotalCost), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}
