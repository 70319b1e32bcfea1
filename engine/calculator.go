package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/portfolio"
)

// ValuationCalculator writes one kind of result for a trade into the cube.
// Calculate runs once per trade per (date, sample) after the market has
// been updated; CalculateT0 runs once per trade on today's market.
type ValuationCalculator interface {
	Name() string
	CalculateT0(t portfolio.Trade, trade int, m marketdata.Market, c cube.Cube) error
	Calculate(t portfolio.Trade, trade int, m marketdata.Market, c cube.Cube, d time.Time, date, sample int) error
}

// NPVCalculator stores the trade NPV in base currency.
type NPVCalculator struct {
	Depth int
}

func NewNPVCalculator() *NPVCalculator {
	return &NPVCalculator{Depth: cube.NPVDepth}
}

func (*NPVCalculator) Name() string { return "npv" }

func (n *NPVCalculator) CalculateT0(t portfolio.Trade, trade int, m marketdata.Market, c cube.Cube) error {
	v, err := t.NPV(m)
	if err != nil {
		return err
	}
	return c.SetT0(v, trade, n.Depth)
}

func (n *NPVCalculator) Calculate(t portfolio.Trade, trade int, m marketdata.Market, c cube.Cube, d time.Time, date, sample int) error {
	if !t.Maturity().After(d) {
		return nil
	}
	v, err := t.NPV(m)
	if err != nil {
		return err
	}
	return c.SetAt(v, trade, date, sample, n.Depth)
}

// CashflowCalculator stores the base currency sum of the flows a trade
// paid since the previous grid date, the previous date excluded.
type CashflowCalculator struct {
	Depth int
	today time.Time
	grid  []time.Time
}

func NewCashflowCalculator(today time.Time, grid []time.Time) *CashflowCalculator {
	return &CashflowCalculator{Depth: cube.AuxiliaryDepth, today: today, grid: grid}
}

func (*CashflowCalculator) Name() string { return "cashflow" }

func (*CashflowCalculator) CalculateT0(portfolio.Trade, int, marketdata.Market, cube.Cube) error {
	return nil
}

func (cf *CashflowCalculator) Calculate(t portfolio.Trade, trade int, m marketdata.Market, c cube.Cube, d time.Time, date, sample int) error {
	ct, ok := t.(portfolio.CashflowTrade)
	if !ok {
		return nil
	}
	if date < 0 || date >= len(cf.grid) {
		return fmt.Errorf("%w: date index %d", cube.ErrUnknownCoordinate, date)
	}
	prev := cf.today
	if date > 0 {
		prev = cf.grid[date-1]
	}
	if !t.Maturity().After(prev) {
		return nil
	}
	flows, err := ct.Flows(m)
	if err != nil {
		return err
	}
	var sum float64
	for _, f := range flows {
		if !f.Date.After(prev) || f.Date.After(d) {
			continue
		}
		v, err := portfolio.ToBase(m, f.Currency, f.Amount)
		if err != nil {
			return err
		}
		sum += v
	}
	return c.SetAt(sum, trade, date, sample, cf.Depth)
}
