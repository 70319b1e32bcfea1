package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/simcube/dates"
)

// TradeConfig is the file form of one trade. Fields not used by a trade
// type are ignored.
type TradeConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Type     string  `json:"type" yaml:"type"`
	Currency string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	Notional float64 `json:"notional,omitempty" yaml:"notional,omitempty"`
	Maturity string  `json:"maturity,omitempty" yaml:"maturity,omitempty"`

	Credit   string `json:"credit,omitempty" yaml:"credit,omitempty"`
	Security string `json:"security,omitempty" yaml:"security,omitempty"`

	BoughtCurrency string  `json:"bought_currency,omitempty" yaml:"bought_currency,omitempty"`
	BoughtAmount   float64 `json:"bought_amount,omitempty" yaml:"bought_amount,omitempty"`
	SoldCurrency   string  `json:"sold_currency,omitempty" yaml:"sold_currency,omitempty"`
	SoldAmount     float64 `json:"sold_amount,omitempty" yaml:"sold_amount,omitempty"`

	Index      string  `json:"index,omitempty" yaml:"index,omitempty"`
	Spread     float64 `json:"spread,omitempty" yaml:"spread,omitempty"`
	FixingDate string  `json:"fixing_date,omitempty" yaml:"fixing_date,omitempty"`
	AccrualEnd string  `json:"accrual_end,omitempty" yaml:"accrual_end,omitempty"`

	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Quantity float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Strike   float64 `json:"strike,omitempty" yaml:"strike,omitempty"`
}

// resolveDate accepts YYYY-MM-DD or a tenor relative to asof.
func resolveDate(asof time.Time, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := dates.ParseDate(s); err == nil {
		return d, nil
	}
	p, err := dates.ParsePeriod(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is neither YYYY-MM-DD nor a tenor", s)
	}
	return p.AddTo(asof), nil
}

// Build turns the config into a Trade. Relative dates are rolled from asof.
func (tc TradeConfig) Build(asof time.Time) (Trade, error) {
	mat, err := resolveDate(asof, tc.Maturity)
	if err != nil {
		return nil, fmt.Errorf("trade %s: maturity: %w", tc.ID, err)
	}
	var t Trade
	switch strings.ToLower(tc.Type) {
	case "zerobond", "zero_bond":
		if tc.Currency == "" {
			return nil, fmt.Errorf("trade %s: currency is required", tc.ID)
		}
		t = &ZeroBond{TradeID: tc.ID, Currency: tc.Currency, Notional: tc.Notional, Expiry: mat, Credit: tc.Credit, Security: tc.Security}
	case "fxforward", "fx_forward":
		if tc.BoughtCurrency == "" || tc.SoldCurrency == "" {
			return nil, fmt.Errorf("trade %s: bought_currency and sold_currency are required", tc.ID)
		}
		t = &FXForward{
			TradeID:        tc.ID,
			BoughtCurrency: tc.BoughtCurrency,
			BoughtAmount:   tc.BoughtAmount,
			SoldCurrency:   tc.SoldCurrency,
			SoldAmount:     tc.SoldAmount,
			Expiry:         mat,
		}
	case "floatingcoupon", "floating_coupon":
		if tc.Index == "" {
			return nil, fmt.Errorf("trade %s: index is required", tc.ID)
		}
		fix, err := resolveDate(asof, tc.FixingDate)
		if err != nil {
			return nil, fmt.Errorf("trade %s: fixing_date: %w", tc.ID, err)
		}
		end, err := resolveDate(asof, tc.AccrualEnd)
		if err != nil {
			return nil, fmt.Errorf("trade %s: accrual_end: %w", tc.ID, err)
		}
		if fix.IsZero() {
			return nil, fmt.Errorf("trade %s: fixing_date is required", tc.ID)
		}
		if mat.Before(fix) {
			return nil, fmt.Errorf("trade %s: payment before fixing", tc.ID)
		}
		t = &FloatingCoupon{
			TradeID:     tc.ID,
			Index:       tc.Index,
			Notional:    tc.Notional,
			Spread:      tc.Spread,
			FixingDate:  fix,
			AccrualEnd:  end,
			PaymentDate: mat,
		}
	case "equityforward", "equity_forward":
		if tc.Name == "" || tc.Currency == "" {
			return nil, fmt.Errorf("trade %s: name and currency are required", tc.ID)
		}
		t = &EquityForward{TradeID: tc.ID, Name: tc.Name, Currency: tc.Currency, Quantity: tc.Quantity, Strike: tc.Strike, Expiry: mat}
	default:
		return nil, fmt.Errorf("trade %s: unknown type %q", tc.ID, tc.Type)
	}
	if err := validateTrade(t); err != nil {
		return nil, err
	}
	return t, nil
}

// FromConfig builds a portfolio in config order.
func FromConfig(asof time.Time, tcs []TradeConfig) (*Portfolio, error) {
	p, _ := New()
	for _, tc := range tcs {
		t, err := tc.Build(asof)
		if err != nil {
			return nil, err
		}
		if err := p.Add(t); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadFile reads a list of trades from YAML, falling back to JSON.
func LoadFile(path string, asof time.Time) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio file: %w", err)
	}
	var doc struct {
		Trades []TradeConfig `json:"trades" yaml:"trades"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse portfolio file (tried YAML and JSON): %w", err)
		}
	}
	return FromConfig(asof, doc.Trades)
}
