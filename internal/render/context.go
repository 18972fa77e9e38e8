package render

import (
	"errors"
	"time"

	"evcc-charge-report/internal/report/domain"
)

// Sender identifies the report issuer on the document.
type Sender struct {
	Name   string
	Street string
	City   string
}

// Context is the sole input to the document builders. The pipeline
// constructs it once; builders only read it.
type Context struct {
	Period      domain.Period
	PeriodLabel string
	Sender      Sender
	Sessions    []domain.Session
	Totals      domain.Totals
	TotalEnergy string // preformatted
	TotalCost   string // preformatted
	GeneratedAt time.Time
	German      bool
}

// RenderError indicates a document could not be produced from the
// given context.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return "render: " + e.Err.Error() }
func (e *RenderError) Unwrap() error { return e.Err }

func (c *Context) validate() error {
	if c == nil {
		return errors.New("nil context")
	}
	if c.PeriodLabel == "" {
		return errors.New("missing period label")
	}
	if c.Sender.Name == "" {
		return errors.New("missing sender name")
	}
	return nil
}

// labels is the per-locale label set. Selecting it here is the core's
// template selection; the rendering engine stays locale-agnostic.
type labels struct {
	Title      string
	Period     string
	Generated  string
	Sessions   string
	Date       string
	Duration   string
	Loadpoint  string
	Vehicle    string
	Energy     string
	Cost       string
	Total      string
	NoSessions string
	NotBilled  string
}

func (c *Context) labels() labels {
	if c.German {
		return labels{
			Title:      "Ladekosten-Übersicht",
			Period:     "Zeitraum",
			Generated:  "Erstellt am",
			Sessions:   "Ladevorgänge",
			Date:       "Datum",
			Duration:   "Ladedauer",
			Loadpoint:  "Ladepunkt",
			Vehicle:    "Fahrzeug",
			Energy:     "Energie (kWh)",
			Cost:       "Kosten",
			Total:      "Summe",
			NoSessions: "Keine Ladevorgänge im Zeitraum",
			NotBilled:  "nicht berechnet",
		}
	}
	return labels{
		Title:      "Charging Cost Summary",
		Period:     "Period",
		Generated:  "Generated",
		Sessions:   "Sessions",
		Date:       "Date",
		Duration:   "Duration",
		Loadpoint:  "Charging Point",
		Vehicle:    "Vehicle",
		Energy:     "Energy (kWh)",
		Cost:       "Cost",
		Total:      "Total",
		NoSessions: "No charging sessions in this period",
		NotBilled:  "not billed",
	}
}

// Builder implements document construction for both output formats.
type Builder struct{}

func (Builder) BuildPDF(c *Context) ([]byte, error)  { return BuildPDF(c) }
func (Builder) BuildXLSX(c *Context) ([]byte, error) { return BuildXLSX(c) }
