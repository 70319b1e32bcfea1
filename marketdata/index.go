package marketdata

import (
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// FixingSource supplies known index fixings.
type FixingSource interface {
	Fixing(index string, d time.Time) (float64, bool)
}

// FixingHistory is a FixingSource keyed by index name and date.
type FixingHistory map[string]map[time.Time]float64

func (h FixingHistory) Fixing(index string, d time.Time) (float64, bool) {
	v, ok := h[index][d]
	return v, ok
}

// Add records a fixing.
func (h FixingHistory) Add(index string, d time.Time, v float64) {
	m, ok := h[index]
	if !ok {
		m = make(map[time.Time]float64)
		h[index] = m
	}
	m[d] = v
}

// IborIndex is a term rate index projected off its forwarding curve.
// Fixings before the reference date must come from the fixing source.
type IborIndex struct {
	Name       string
	Currency   string
	Tenor      dates.Period
	DayCounter dates.DayCounter

	forwarding YieldCurve
	fixings    FixingSource
}

func NewIborIndex(name, ccy string, tenor dates.Period, dc dates.DayCounter, forwarding YieldCurve, fixings FixingSource) *IborIndex {
	if fixings == nil {
		fixings = FixingHistory{}
	}
	return &IborIndex{
		Name:       name,
		Currency:   ccy,
		Tenor:      tenor,
		DayCounter: dc,
		forwarding: forwarding,
		fixings:    fixings,
	}
}

// Clone returns the same index projected off another curve and reading
// another fixing source.
func (ix *IborIndex) Clone(forwarding YieldCurve, fixings FixingSource) *IborIndex {
	return NewIborIndex(ix.Name, ix.Currency, ix.Tenor, ix.DayCounter, forwarding, fixings)
}

func (ix *IborIndex) ForwardingCurve() YieldCurve { return ix.forwarding }

func (ix *IborIndex) Fixings() FixingSource { return ix.fixings }

// Fixing returns the index value fixing on d. Past dates need a stored
// fixing; today uses a stored fixing when there is one and forecasts
// otherwise.
func (ix *IborIndex) Fixing(d time.Time) (float64, error) {
	ref := ix.forwarding.ReferenceDate()
	if !d.After(ref) {
		if v, ok := ix.fixings.Fixing(ix.Name, d); ok {
			return v, nil
		}
		if d.Before(ref) {
			return 0, fmt.Errorf("missing %s fixing for %s", ix.Name, dates.Format(d))
		}
	}
	return ix.Forecast(d), nil
}

// Forecast projects the rate fixing on d off the forwarding curve.
func (ix *IborIndex) Forecast(d time.Time) float64 {
	end := ix.Tenor.AddTo(d)
	tau := ix.DayCounter.YearFraction(d, end)
	if tau <= 0 {
		return 0
	}
	return (ix.forwarding.DiscountDate(d)/ix.forwarding.DiscountDate(end) - 1) / tau
}
