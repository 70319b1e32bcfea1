package marketdata

import (
	"fmt"
	"math"
)

// VolConverter turns a swaption vol matrix into an equivalent one quoted as
// normal vols.
type VolConverter interface {
	ToNormal(ccy string, m *SwaptionVolMatrix) (*SwaptionVolMatrix, error)
}

// CurveLookup resolves the discount curve used to compute forward swap
// rates for a currency.
type CurveLookup func(ccy string) (YieldCurve, error)

// ForwardScaledConverter approximates a normal vol as the shifted
// lognormal vol times the shifted forward swap rate. The forward is that of
// an annual fixed leg priced off the currency's discount curve.
type ForwardScaledConverter struct {
	curves CurveLookup
}

func NewForwardScaledConverter(curves CurveLookup) *ForwardScaledConverter {
	return &ForwardScaledConverter{curves: curves}
}

// SnapshotCurves adapts a Snapshot for ForwardScaledConverter.
func SnapshotCurves(s Snapshot, configuration string) CurveLookup {
	return func(ccy string) (YieldCurve, error) {
		return s.DiscountCurve(ccy, configuration)
	}
}

func (c *ForwardScaledConverter) ToNormal(ccy string, m *SwaptionVolMatrix) (*SwaptionVolMatrix, error) {
	if m.VolType() == Normal {
		return m, nil
	}
	curve, err := c.curves(ccy)
	if err != nil {
		return nil, fmt.Errorf("convert %s swaption vols: %w", ccy, err)
	}

	expiries, terms := m.Expiries(), m.Terms()
	shifts := m.Shifts()
	quotes := make([]Quote, len(expiries)*len(terms))
	for i, e := range expiries {
		for j, l := range terms {
			n := i*len(terms) + j
			f := ForwardSwapRate(curve, e, l)
			quotes[n] = ConstQuote(m.At(i, j) * math.Abs(f+shifts[n]))
		}
	}
	return NewSwaptionVolMatrix(FixedClock(m.ReferenceDate()), m.DayCounter(), Normal, expiries, terms, quotes, nil)
}

// ForwardSwapRate is the par rate of a swap starting at start (years) with
// an annual fixed leg over length years. Broken final periods are accrued
// pro rata.
func ForwardSwapRate(c YieldCurve, start, length float64) float64 {
	if length <= 0 {
		return 0
	}
	annuity := 0.0
	prev := start
	for t := start + 1; ; t++ {
		end := math.Min(t, start+length)
		annuity += (end - prev) * c.Discount(end)
		prev = end
		if end >= start+length {
			break
		}
	}
	return (c.Discount(start) - c.Discount(start+length)) / annuity
}
