// Package portfolio holds the trades a valuation run prices. Pricing is
// plain discounting off whatever marketdata.Market it is handed, which is
// enough to exercise every simulated structure the engine moves.
package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/simcube/marketdata"
)

// Trade is anything the engine can value.
type Trade interface {
	ID() string
	Type() string
	Maturity() time.Time
	// NPV is the value in the market's base currency as of the market's
	// reference date. Matured trades are worth zero.
	NPV(m marketdata.Market) (float64, error)
}

// Flow is one payment.
type Flow struct {
	Date     time.Time
	Currency string
	Amount   float64
}

// CashflowTrade exposes the payments of a trade. Amounts may need the
// market, e.g. for past index fixings.
type CashflowTrade interface {
	Trade
	Flows(m marketdata.Market) ([]Flow, error)
}

// FixingDependent trades read future index fixings. The simulation market
// must know the dates so it can freeze them along each path.
type FixingDependent interface {
	FixingDates() map[string][]time.Time
}

// ToBase converts amount in ccy into the market's base currency.
func ToBase(m marketdata.Market, ccy string, amount float64) (float64, error) {
	if ccy == m.BaseCurrency() || amount == 0 {
		return amount, nil
	}
	fx, err := m.FXSpot(ccy + m.BaseCurrency())
	if err != nil {
		return 0, err
	}
	return amount * fx, nil
}

func matured(m marketdata.Market, d time.Time) bool {
	return !d.After(m.ReferenceDate())
}

// ZeroBond pays Notional at Maturity. With a Credit name the payment is
// weighted by survival and recovery; with a Security the discount factor
// carries the security spread.
type ZeroBond struct {
	TradeID  string
	Currency string
	Notional float64
	Expiry   time.Time
	Credit   string
	Security string
}

func (b *ZeroBond) ID() string          { return b.TradeID }
func (b *ZeroBond) Type() string        { return "ZeroBond" }
func (b *ZeroBond) Maturity() time.Time { return b.Expiry }

func (b *ZeroBond) NPV(m marketdata.Market) (float64, error) {
	if matured(m, b.Expiry) {
		return 0, nil
	}
	c, err := m.DiscountCurve(b.Currency)
	if err != nil {
		return 0, err
	}
	df := c.DiscountDate(b.Expiry)
	t := c.DayCounter().YearFraction(c.ReferenceDate(), b.Expiry)

	if b.Security != "" {
		s, err := m.SecuritySpread(b.Security)
		if err != nil {
			return 0, err
		}
		df *= math.Exp(-s * t)
	}
	if b.Credit != "" {
		dc, err := m.DefaultCurve(b.Credit)
		if err != nil {
			return 0, err
		}
		rr, err := m.RecoveryRate(b.Credit)
		if err != nil {
			return 0, err
		}
		sp := dc.SurvivalProbability(dc.DayCounter().YearFraction(dc.ReferenceDate(), b.Expiry))
		df *= sp + rr*(1-sp)
	}
	return ToBase(m, b.Currency, b.Notional*df)
}

func (b *ZeroBond) Flows(marketdata.Market) ([]Flow, error) {
	return []Flow{{Date: b.Expiry, Currency: b.Currency, Amount: b.Notional}}, nil
}

// FXForward exchanges SoldAmount of SoldCurrency for BoughtAmount of
// BoughtCurrency at Maturity.
type FXForward struct {
	TradeID        string
	BoughtCurrency string
	BoughtAmount   float64
	SoldCurrency   string
	SoldAmount     float64
	Expiry         time.Time
}

func (f *FXForward) ID() string          { return f.TradeID }
func (f *FXForward) Type() string        { return "FxForward" }
func (f *FXForward) Maturity() time.Time { return f.Expiry }

func (f *FXForward) leg(m marketdata.Market, ccy string, amount float64) (float64, error) {
	c, err := m.DiscountCurve(ccy)
	if err != nil {
		return 0, err
	}
	return ToBase(m, ccy, amount*c.DiscountDate(f.Expiry))
}

func (f *FXForward) NPV(m marketdata.Market) (float64, error) {
	if matured(m, f.Expiry) {
		return 0, nil
	}
	bought, err := f.leg(m, f.BoughtCurrency, f.BoughtAmount)
	if err != nil {
		return 0, err
	}
	sold, err := f.leg(m, f.SoldCurrency, f.SoldAmount)
	if err != nil {
		return 0, err
	}
	return bought - sold, nil
}

func (f *FXForward) Flows(marketdata.Market) ([]Flow, error) {
	return []Flow{
		{Date: f.Expiry, Currency: f.BoughtCurrency, Amount: f.BoughtAmount},
		{Date: f.Expiry, Currency: f.SoldCurrency, Amount: -f.SoldAmount},
	}, nil
}

// FloatingCoupon pays Notional * (fixing + Spread) * accrual on
// PaymentDate, the index fixing on FixingDate.
type FloatingCoupon struct {
	TradeID     string
	Index       string
	Notional    float64
	Spread      float64
	FixingDate  time.Time
	AccrualEnd  time.Time
	PaymentDate time.Time
}

func (c *FloatingCoupon) ID() string          { return c.TradeID }
func (c *FloatingCoupon) Type() string        { return "FloatingCoupon" }
func (c *FloatingCoupon) Maturity() time.Time { return c.PaymentDate }

func (c *FloatingCoupon) FixingDates() map[string][]time.Time {
	return map[string][]time.Time{c.Index: {c.FixingDate}}
}

func (c *FloatingCoupon) amount(ix *marketdata.IborIndex) (float64, error) {
	rate, err := ix.Fixing(c.FixingDate)
	if err != nil {
		return 0, err
	}
	end := c.AccrualEnd
	if end.IsZero() {
		end = ix.Tenor.AddTo(c.FixingDate)
	}
	return c.Notional * (rate + c.Spread) * ix.DayCounter.YearFraction(c.FixingDate, end), nil
}

func (c *FloatingCoupon) NPV(m marketdata.Market) (float64, error) {
	if matured(m, c.PaymentDate) {
		return 0, nil
	}
	ix, err := m.IborIndex(c.Index)
	if err != nil {
		return 0, err
	}
	amt, err := c.amount(ix)
	if err != nil {
		return 0, err
	}
	curve, err := m.DiscountCurve(ix.Currency)
	if err != nil {
		return 0, err
	}
	return ToBase(m, ix.Currency, amt*curve.DiscountDate(c.PaymentDate))
}

func (c *FloatingCoupon) Flows(m marketdata.Market) ([]Flow, error) {
	ix, err := m.IborIndex(c.Index)
	if err != nil {
		return nil, err
	}
	amt, err := c.amount(ix)
	if err != nil {
		return nil, err
	}
	return []Flow{{Date: c.PaymentDate, Currency: ix.Currency, Amount: amt}}, nil
}

// EquityForward buys Quantity of Name at Strike on Maturity.
type EquityForward struct {
	TradeID  string
	Name     string
	Currency string
	Quantity float64
	Strike   float64
	Expiry   time.Time
}

func (f *EquityForward) ID() string          { return f.TradeID }
func (f *EquityForward) Type() string        { return "EquityForward" }
func (f *EquityForward) Maturity() time.Time { return f.Expiry }

func (f *EquityForward) NPV(m marketdata.Market) (float64, error) {
	if matured(m, f.Expiry) {
		return 0, nil
	}
	spot, err := m.EquitySpot(f.Name)
	if err != nil {
		return 0, err
	}
	div, err := m.DividendCurve(f.Name)
	if err != nil {
		return 0, err
	}
	disc, err := m.DiscountCurve(f.Currency)
	if err != nil {
		return 0, err
	}
	v := f.Quantity * (spot*div.DiscountDate(f.Expiry) - f.Strike*disc.DiscountDate(f.Expiry))
	return ToBase(m, f.Currency, v)
}

// Flows settles physically at the simulated spot, so the payment is only
// known once the market reaches Maturity.
func (f *EquityForward) Flows(m marketdata.Market) ([]Flow, error) {
	if m.ReferenceDate().Before(f.Expiry) {
		return []Flow{{Date: f.Expiry, Currency: f.Currency}}, nil
	}
	spot, err := m.EquitySpot(f.Name)
	if err != nil {
		return nil, err
	}
	return []Flow{{Date: f.Expiry, Currency: f.Currency, Amount: f.Quantity * (spot - f.Strike)}}, nil
}

func validateTrade(t Trade) error {
	if t.ID() == "" {
		return fmt.Errorf("%s: id is required", t.Type())
	}
	if t.Maturity().IsZero() {
		return fmt.Errorf("trade %s: maturity is required", t.ID())
	}
	return nil
}
