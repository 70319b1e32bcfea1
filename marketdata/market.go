// Package marketdata holds quotes, term structures and the market views
// that pricing code reads: a today's-market Snapshot and the Market that a
// simulation keeps updated.
package marketdata

import (
	"errors"
	"time"
)

// ErrNotFound is wrapped by lookups for entities a market does not carry.
var ErrNotFound = errors.New("not found in market")

// Clock supplies the reference date term structures measure time from.
type Clock interface {
	ReferenceDate() time.Time
}

// FixedClock is a Clock that never moves.
type FixedClock time.Time

func (c FixedClock) ReferenceDate() time.Time { return time.Time(c) }

// Market is the read-only view pricing code uses. All structures are
// measured from ReferenceDate.
type Market interface {
	Clock
	AsOf() time.Time
	BaseCurrency() string
	Numeraire() float64

	DiscountCurve(ccy string) (YieldCurve, error)
	YieldCurve(name string) (YieldCurve, error)
	IborIndex(name string) (*IborIndex, error)
	FXSpot(pair string) (float64, error)
	SwaptionVol(ccy string) (SwaptionVol, error)
	CapFloorVol(ccy string) (OptionletVol, error)
	DefaultCurve(name string) (DefaultCurve, error)
	RecoveryRate(name string) (float64, error)
	FXVol(pair string) (BlackVol, error)
	EquitySpot(name string) (float64, error)
	DividendCurve(name string) (YieldCurve, error)
	EquityVol(name string) (BlackVol, error)
	SecuritySpread(name string) (float64, error)
}

// Snapshot is today's market: the source a simulation market is seeded
// from. configuration selects one of possibly several market setups.
type Snapshot interface {
	AsOf() time.Time

	DiscountCurve(ccy, configuration string) (YieldCurve, error)
	YieldCurve(name, configuration string) (YieldCurve, error)
	IborIndex(name, configuration string) (*IborIndex, error)
	FXSpot(pair, configuration string) (float64, error)
	SwaptionVol(ccy, configuration string) (SwaptionVolSource, error)
	CapFloorVol(ccy, configuration string) (OptionletVol, error)
	DefaultCurve(name, configuration string) (DefaultCurve, error)
	RecoveryRate(name, configuration string) (float64, error)
	FXVol(pair, configuration string) (BlackVol, error)
	EquitySpot(name, configuration string) (float64, error)
	DividendCurve(name, configuration string) (YieldCurve, error)
	EquityVol(name, configuration string) (BlackVol, error)
	SecuritySpread(name, configuration string) (float64, error)
}
