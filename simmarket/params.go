package simmarket

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
)

// CurveParams scopes one curve category: which names are simulated and on
// which tenor grid.
type CurveParams struct {
	Names  []string `json:"names,omitempty" yaml:"names,omitempty"`
	Tenors []string `json:"tenors,omitempty" yaml:"tenors,omitempty"`
	// TenorOverrides replaces Tenors for individual names.
	TenorOverrides map[string][]string `json:"tenor_overrides,omitempty" yaml:"tenor_overrides,omitempty"`
	DayCounter     string              `json:"day_counter,omitempty" yaml:"day_counter,omitempty"`
}

// TenorsFor returns the grid for name, honouring overrides.
func (c CurveParams) TenorsFor(name string) ([]dates.Period, error) {
	src := c.Tenors
	if o, ok := c.TenorOverrides[name]; ok {
		src = o
	}
	return dates.ParsePeriods(src)
}

func (c CurveParams) validate(what string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := dates.ParseDayCounter(c.DayCounter); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	for _, n := range names {
		ps, err := c.TenorsFor(n)
		if err != nil {
			return fmt.Errorf("%s %s: %w", what, n, err)
		}
		if len(ps) == 0 {
			return fmt.Errorf("%s.tenors is required", what)
		}
	}
	return nil
}

// VolParams scopes one volatility category. When Simulate is false the
// structure is not part of the scenario and ages with DecayMode.
type VolParams struct {
	Names     []string  `json:"names,omitempty" yaml:"names,omitempty"`
	Simulate  bool      `json:"simulate" yaml:"simulate"`
	DecayMode string    `json:"decay_mode,omitempty" yaml:"decay_mode,omitempty"`
	Expiries  []string  `json:"expiries,omitempty" yaml:"expiries,omitempty"`
	Terms     []string  `json:"terms,omitempty" yaml:"terms,omitempty"`
	Strikes   []float64 `json:"strikes,omitempty" yaml:"strikes,omitempty"`
}

// Decay parses DecayMode, defaulting to ForwardVariance.
func (v VolParams) Decay() (marketdata.DecayMode, error) {
	if v.DecayMode == "" {
		return marketdata.ForwardVariance, nil
	}
	return marketdata.ParseDecayMode(v.DecayMode)
}

func (v VolParams) validate(what string, names []string, needTerms bool) error {
	if len(names) == 0 {
		return nil
	}
	if !v.Simulate {
		if _, err := v.Decay(); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}
	ps, err := dates.ParsePeriods(v.Expiries)
	if err != nil {
		return fmt.Errorf("%s.expiries: %w", what, err)
	}
	if len(ps) == 0 {
		return fmt.Errorf("%s.expiries is required", what)
	}
	if needTerms {
		ts, err := dates.ParsePeriods(v.Terms)
		if err != nil {
			return fmt.Errorf("%s.terms: %w", what, err)
		}
		if len(ts) == 0 {
			return fmt.Errorf("%s.terms is required", what)
		}
	}
	return nil
}

// AggregationParams selects the auxiliary series recorded per date and
// sample. The numeraire is always recorded.
type AggregationParams struct {
	Indices    []string `json:"indices,omitempty" yaml:"indices,omitempty"`
	Currencies []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`
}

// Parameters is the simulation scope: which currencies, names, tenors and
// vol grids the market turns into quote cells.
type Parameters struct {
	BaseCurrency string   `json:"base_currency" yaml:"base_currency"`
	Currencies   []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`

	// Discount names default to Currencies.
	DiscountCurves  CurveParams `json:"discount_curves" yaml:"discount_curves"`
	YieldCurves     CurveParams `json:"yield_curves" yaml:"yield_curves"`
	Indices         CurveParams `json:"indices" yaml:"indices"`
	SecuritySpreads []string    `json:"security_spreads,omitempty" yaml:"security_spreads,omitempty"`

	SwaptionVols VolParams `json:"swaption_vols" yaml:"swaption_vols"`
	CapFloorVols VolParams `json:"capfloor_vols" yaml:"capfloor_vols"`
	FXVols       VolParams `json:"fx_vols" yaml:"fx_vols"`

	DefaultCurves CurveParams `json:"default_curves" yaml:"default_curves"`
	// Equities names the equity spots; its tenors are the dividend curve grid.
	Equities   CurveParams `json:"equities" yaml:"equities"`
	EquityVols VolParams   `json:"equity_vols" yaml:"equity_vols"`

	Aggregation AggregationParams `json:"aggregation" yaml:"aggregation"`
}

// DiscountNames returns the currencies with a simulated discount curve.
func (p *Parameters) DiscountNames() []string {
	if len(p.DiscountCurves.Names) > 0 {
		return p.DiscountCurves.Names
	}
	return p.Currencies
}

// EquityVolNames defaults to the equity names.
func (p *Parameters) EquityVolNames() []string {
	if len(p.EquityVols.Names) > 0 {
		return p.EquityVols.Names
	}
	return p.Equities.Names
}

// FXPairs returns ccy+base for every non-base currency.
func (p *Parameters) FXPairs() []string {
	var out []string
	for _, c := range p.Currencies {
		if c != p.BaseCurrency {
			out = append(out, c+p.BaseCurrency)
		}
	}
	return out
}

// Validate reports the first configuration error. An empty parameter set
// is valid and yields an empty market.
func (p *Parameters) Validate() error {
	if len(p.Currencies) > 0 || len(p.Aggregation.Currencies) > 0 {
		if p.BaseCurrency == "" {
			return fmt.Errorf("base_currency is required")
		}
	}
	for _, c := range append(append([]string{}, p.Currencies...), p.Aggregation.Currencies...) {
		if len(c) != 3 || strings.ToUpper(c) != c {
			return fmt.Errorf("currency %q must be a 3 letter upper case code", c)
		}
	}
	if p.BaseCurrency != "" && len(p.Currencies) > 0 && !contains(p.Currencies, p.BaseCurrency) {
		return fmt.Errorf("base_currency %s must be one of currencies", p.BaseCurrency)
	}
	for _, pair := range p.FXVols.Names {
		if len(pair) != 6 {
			return fmt.Errorf("fx_vols: %q is not a 6 letter currency pair", pair)
		}
	}

	checks := []struct {
		what   string
		params CurveParams
		names  []string
	}{
		{"discount_curves", p.DiscountCurves, p.DiscountNames()},
		{"yield_curves", p.YieldCurves, p.YieldCurves.Names},
		{"indices", p.Indices, p.Indices.Names},
		{"default_curves", p.DefaultCurves, p.DefaultCurves.Names},
		{"equities", p.Equities, p.Equities.Names},
	}
	for _, c := range checks {
		if err := c.params.validate(c.what, c.names); err != nil {
			return err
		}
	}

	if err := p.SwaptionVols.validate("swaption_vols", p.SwaptionVols.Names, true); err != nil {
		return err
	}
	if err := p.CapFloorVols.validate("capfloor_vols", p.CapFloorVols.Names, false); err != nil {
		return err
	}
	if err := p.FXVols.validate("fx_vols", p.FXVols.Names, false); err != nil {
		return err
	}
	if err := p.EquityVols.validate("equity_vols", p.EquityVolNames(), false); err != nil {
		return err
	}

	for _, ix := range p.Aggregation.Indices {
		if !contains(p.Indices.Names, ix) {
			return fmt.Errorf("aggregation index %s is not a simulated index", ix)
		}
	}
	for _, c := range p.Aggregation.Currencies {
		if !contains(p.Currencies, c) {
			return fmt.Errorf("aggregation currency %s is not a simulated currency", c)
		}
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
