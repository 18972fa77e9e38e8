package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers, dates and month names for a configured
// locale. Unknown or empty locales fall back to en-US.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// New builds a formatter from a locale string such as "de_DE.UTF-8"
// or "en-US".
func New(locale string) *Formatter {
	tag, err := language.Parse(normalize(locale))
	if err != nil || tag == language.Und {
		tag = language.AmericanEnglish
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// normalize strips POSIX locale suffixes ("de_DE.UTF-8" -> "de-DE").
func normalize(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// IsGerman reports whether the German document labels apply.
func (f *Formatter) IsGerman() bool {
	base, _ := f.tag.Base()
	return base.String() == "de"
}

// Energy formats a kWh value with three fraction digits.
func (f *Formatter) Energy(d decimal.Decimal) string {
	v, _ := d.Round(3).Float64()
	return f.printer.Sprint(number.Decimal(v, number.Scale(3)))
}

// Money formats an amount with two fraction digits.
func (f *Formatter) Money(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// DateTime renders a timestamp as YYYY-MM-DD HH:MM.
func (f *Formatter) DateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// Date renders a calendar date.
func (f *Formatter) Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// Duration renders an elapsed time as "2h 5m".
func (f *Formatter) Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// MonthName returns the localized month name.
func (f *Formatter) MonthName(m time.Month) string {
	if f.IsGerman() && m >= time.January && m <= time.December {
		return germanMonths[m-1]
	}
	return m.String()
}

// PeriodLabel renders a human period header, e.g. "März 2024".
func (f *Formatter) PeriodLabel(m time.Month, year int) string {
	return fmt.Sprintf("%s %d", f.MonthName(m), year)
}
