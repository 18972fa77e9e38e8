package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CostPolicy controls how a session without a source price is shown.
// Either way the session contributes zero to the cost total.
type CostPolicy string

const (
	// CostZeroFill renders a neutral zero amount for unbilled sessions.
	CostZeroFill CostPolicy = "zero-fill"
	// CostOmit leaves the cost cell blank for unbilled sessions.
	CostOmit CostPolicy = "omit"
)

// SessionFormatter renders values for display. Formatting is applied
// after the sums so display rounding never feeds back into totals.
type SessionFormatter interface {
	DateTime(t time.Time) string
	Duration(d time.Duration) string
	Energy(d decimal.Decimal) string
	Money(d decimal.Decimal) string
}

// Aggregate filters, sorts and normalizes raw sessions for the period
// and computes decimal-exact totals. Records outside the window or
// with unusable energy are dropped and reported as warnings; an empty
// result is a valid, reportable state.
func Aggregate(raw []RawSession, p Period, f SessionFormatter, policy CostPolicy) ([]Session, Totals, []Warning) {
	type indexed struct {
		idx int
		raw RawSession
	}

	var warnings []Warning
	inWindow := make([]indexed, 0, len(raw))
	for i, r := range raw {
		if r == nil {
			warnings = append(warnings, Warning{Index: i, Reason: "nil session record"})
			continue
		}
		if !p.Contains(r.StartTime()) {
			warnings = append(warnings, Warning{
				Index:  i,
				Reason: fmt.Sprintf("start %s outside period %s", r.StartTime().Format(time.RFC3339), p.Key()),
			})
			continue
		}
		inWindow = append(inWindow, indexed{idx: i, raw: r})
	}

	// Stable: source order breaks ties between equal start times.
	sort.SliceStable(inWindow, func(a, b int) bool {
		return inWindow[a].raw.StartTime().Before(inWindow[b].raw.StartTime())
	})

	sessions := make([]Session, 0, len(inWindow))
	totals := Totals{TotalEnergyKWh: decimal.Zero, TotalCost: decimal.Zero}
	for _, rec := range inWindow {
		r := rec.raw
		energy, ok := r.Energy()
		if !ok {
			warnings = append(warnings, Warning{Index: rec.idx, Reason: "energy missing or not numeric"})
			continue
		}
		if energy.IsNegative() {
			warnings = append(warnings, Warning{Index: rec.idx, Reason: "negative energy"})
			continue
		}

		s := Session{
			Start:     r.StartTime(),
			Loadpoint: r.Loadpoint(),
			Vehicle:   r.Vehicle(),
			EnergyKWh: energy,
			Cost:      decimal.Zero,
		}
		if finish, ok := r.FinishTime(); ok && !finish.Before(s.Start) {
			s.Finish = finish
			s.HasFinish = true
			s.Duration = finish.Sub(s.Start)
		}
		if price, ok := r.Price(); ok {
			s.Cost = price
			s.Billed = true
		}

		totals.SessionCount++
		if !s.Billed {
			totals.Unbilled++
		}
		totals.TotalEnergyKWh = totals.TotalEnergyKWh.Add(s.EnergyKWh)
		totals.TotalCost = totals.TotalCost.Add(s.Cost)
		sessions = append(sessions, s)
	}

	for i := range sessions {
		formatSession(&sessions[i], f, policy)
	}
	return sessions, totals, warnings
}

func formatSession(s *Session, f SessionFormatter, policy CostPolicy) {
	if f == nil {
		return
	}
	s.FormattedStart = f.DateTime(s.Start)
	if s.HasFinish {
		s.FormattedEnd = f.DateTime(s.Finish)
		s.FormattedDuration = f.Duration(s.Duration)
	}
	s.FormattedEnergy = f.Energy(s.EnergyKWh)
	if s.Billed || policy != CostOmit {
		s.FormattedCost = f.Money(s.Cost)
	}
}
