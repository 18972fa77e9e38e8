package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawSession is the narrow view the aggregator needs from a source
// record. Adapters at the data-source boundary implement it, so the
// aggregator never sees the source's payload shape.
type RawSession interface {
	StartTime() time.Time
	// FinishTime reports the session end, ok=false when unknown.
	FinishTime() (time.Time, bool)
	// Energy reports charged energy in kWh, ok=false when the value is
	// absent or not numeric.
	Energy() (decimal.Decimal, bool)
	// Price reports the session cost, ok=false when the source has no
	// tariff configured.
	Price() (decimal.Decimal, bool)
	Loadpoint() string
	Vehicle() string
}

// Session is a normalized charging session. Immutable once built.
type Session struct {
	Start     time.Time
	Finish    time.Time
	HasFinish bool
	Duration  time.Duration
	Loadpoint string
	Vehicle   string
	EnergyKWh decimal.Decimal
	Cost      decimal.Decimal
	Billed    bool // false when the source carried no price

	FormattedStart    string
	FormattedEnd      string
	FormattedDuration string
	FormattedEnergy   string
	FormattedCost     string
}

// Totals are the strict sums over a period's sessions.
type Totals struct {
	SessionCount   int
	Unbilled       int
	TotalEnergyKWh decimal.Decimal
	TotalCost      decimal.Decimal
}

// Warning records a dropped or degraded source record. Warnings are
// accumulated and reported, never raised.
type Warning struct {
	Index  int // position in the source sequence
	Reason string
}
