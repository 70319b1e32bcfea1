package marketdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// StaticConfig describes today's market in a config file. Curves are given
// as continuously compounded zero rates, either per tenor or flat.
type StaticConfig struct {
	AsOf            string                       `json:"asof" yaml:"asof"`
	DayCounter      string                       `json:"day_counter,omitempty" yaml:"day_counter,omitempty"`
	Discount        map[string]CurveConfig       `json:"discount_curves,omitempty" yaml:"discount_curves,omitempty"`
	Yield           map[string]CurveConfig       `json:"yield_curves,omitempty" yaml:"yield_curves,omitempty"`
	Indices         map[string]IndexConfig       `json:"indices,omitempty" yaml:"indices,omitempty"`
	FX              map[string]float64           `json:"fx,omitempty" yaml:"fx,omitempty"`
	SwaptionVols    map[string]SwaptionVolConfig `json:"swaption_vols,omitempty" yaml:"swaption_vols,omitempty"`
	CapFloorVols    map[string]CapFloorVolConfig `json:"capfloor_vols,omitempty" yaml:"capfloor_vols,omitempty"`
	Credit          map[string]CreditConfig      `json:"credit,omitempty" yaml:"credit,omitempty"`
	FXVols          map[string]TermVolConfig     `json:"fx_vols,omitempty" yaml:"fx_vols,omitempty"`
	Equities        map[string]EquityConfig      `json:"equities,omitempty" yaml:"equities,omitempty"`
	SecuritySpreads map[string]float64           `json:"security_spreads,omitempty" yaml:"security_spreads,omitempty"`
	// Fixings maps index name to date (YYYY-MM-DD) to value.
	Fixings map[string]map[string]float64 `json:"fixings,omitempty" yaml:"fixings,omitempty"`
}

type CurveConfig struct {
	Tenors     []string  `json:"tenors,omitempty" yaml:"tenors,omitempty"`
	Rates      []float64 `json:"rates,omitempty" yaml:"rates,omitempty"`
	Rate       float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	DayCounter string    `json:"day_counter,omitempty" yaml:"day_counter,omitempty"`
}

type IndexConfig struct {
	Currency   string      `json:"currency,omitempty" yaml:"currency,omitempty"`
	Tenor      string      `json:"tenor,omitempty" yaml:"tenor,omitempty"`
	DayCounter string      `json:"day_counter,omitempty" yaml:"day_counter,omitempty"`
	Curve      CurveConfig `json:"curve" yaml:"curve"`
}

type SwaptionVolConfig struct {
	Type     string      `json:"type,omitempty" yaml:"type,omitempty"`
	Shape    string      `json:"shape,omitempty" yaml:"shape,omitempty"` // "matrix" or "cube"
	Expiries []string    `json:"expiries,omitempty" yaml:"expiries,omitempty"`
	Terms    []string    `json:"terms,omitempty" yaml:"terms,omitempty"`
	Vols     [][]float64 `json:"vols,omitempty" yaml:"vols,omitempty"`
	Flat     float64     `json:"flat,omitempty" yaml:"flat,omitempty"`
	Shift    float64     `json:"shift,omitempty" yaml:"shift,omitempty"`
}

type CapFloorVolConfig struct {
	Type         string      `json:"type,omitempty" yaml:"type,omitempty"`
	Expiries     []string    `json:"expiries,omitempty" yaml:"expiries,omitempty"`
	Strikes      []float64   `json:"strikes,omitempty" yaml:"strikes,omitempty"`
	Vols         [][]float64 `json:"vols,omitempty" yaml:"vols,omitempty"`
	Flat         float64     `json:"flat,omitempty" yaml:"flat,omitempty"`
	Displacement float64     `json:"displacement,omitempty" yaml:"displacement,omitempty"`
}

type CreditConfig struct {
	Hazard   float64 `json:"hazard" yaml:"hazard"`
	Recovery float64 `json:"recovery" yaml:"recovery"`
}

type TermVolConfig struct {
	Expiries []string  `json:"expiries,omitempty" yaml:"expiries,omitempty"`
	Vols     []float64 `json:"vols,omitempty" yaml:"vols,omitempty"`
	Flat     float64   `json:"flat,omitempty" yaml:"flat,omitempty"`
}

type EquityConfig struct {
	Spot          float64       `json:"spot" yaml:"spot"`
	DividendYield float64       `json:"dividend_yield,omitempty" yaml:"dividend_yield,omitempty"`
	Vol           TermVolConfig `json:"vol" yaml:"vol"`
}

// Static is a Snapshot built once from a StaticConfig. It carries a single
// market configuration and ignores the configuration name.
type Static struct {
	asof  time.Time
	clock Clock
	dc    dates.DayCounter

	discount  map[string]YieldCurve
	yield     map[string]YieldCurve
	indices   map[string]*IborIndex
	fx        map[string]float64
	swaptions map[string]SwaptionVolSource
	capfloors map[string]OptionletVol
	defaults  map[string]DefaultCurve
	recovery  map[string]float64
	fxVols    map[string]BlackVol
	eqSpot    map[string]float64
	dividends map[string]YieldCurve
	eqVols    map[string]BlackVol
	spreads   map[string]float64

	Fixings FixingHistory
}

// NewStatic builds every structure the config describes.
func NewStatic(cfg StaticConfig) (*Static, error) {
	asof, err := dates.ParseDate(cfg.AsOf)
	if err != nil {
		return nil, fmt.Errorf("static market: asof: %w", err)
	}
	dc, err := dates.ParseDayCounter(cfg.DayCounter)
	if err != nil {
		return nil, fmt.Errorf("static market: %w", err)
	}
	s := &Static{
		asof:      asof,
		clock:     FixedClock(asof),
		dc:        dc,
		discount:  map[string]YieldCurve{},
		yield:     map[string]YieldCurve{},
		indices:   map[string]*IborIndex{},
		fx:        map[string]float64{},
		swaptions: map[string]SwaptionVolSource{},
		capfloors: map[string]OptionletVol{},
		defaults:  map[string]DefaultCurve{},
		recovery:  map[string]float64{},
		fxVols:    map[string]BlackVol{},
		eqSpot:    map[string]float64{},
		dividends: map[string]YieldCurve{},
		eqVols:    map[string]BlackVol{},
		spreads:   map[string]float64{},
		Fixings:   FixingHistory{},
	}

	for name, fixings := range cfg.Fixings {
		for ds, v := range fixings {
			d, err := dates.ParseDate(ds)
			if err != nil {
				return nil, fmt.Errorf("static market: fixing %s: %w", name, err)
			}
			s.Fixings.Add(name, d, v)
		}
	}
	for ccy, cc := range cfg.Discount {
		if s.discount[ccy], err = s.curve(cc); err != nil {
			return nil, fmt.Errorf("static market: discount curve %s: %w", ccy, err)
		}
	}
	for name, cc := range cfg.Yield {
		if s.yield[name], err = s.curve(cc); err != nil {
			return nil, fmt.Errorf("static market: yield curve %s: %w", name, err)
		}
	}
	for name, ic := range cfg.Indices {
		if s.indices[name], err = s.index(name, ic); err != nil {
			return nil, fmt.Errorf("static market: index %s: %w", name, err)
		}
	}
	for pair, v := range cfg.FX {
		if len(pair) != 6 || v <= 0 {
			return nil, fmt.Errorf("static market: fx %q needs a 6 letter pair and a positive rate", pair)
		}
		s.fx[pair] = v
	}
	for ccy, vc := range cfg.SwaptionVols {
		if s.swaptions[ccy], err = s.swaptionVol(vc); err != nil {
			return nil, fmt.Errorf("static market: swaption vol %s: %w", ccy, err)
		}
	}
	for ccy, vc := range cfg.CapFloorVols {
		if s.capfloors[ccy], err = s.capFloorVol(vc); err != nil {
			return nil, fmt.Errorf("static market: cap/floor vol %s: %w", ccy, err)
		}
	}
	for name, cc := range cfg.Credit {
		s.defaults[name] = NewFlatHazardCurve(s.clock, s.dc, cc.Hazard)
		s.recovery[name] = cc.Recovery
	}
	for pair, vc := range cfg.FXVols {
		if s.fxVols[pair], err = s.termVol(vc); err != nil {
			return nil, fmt.Errorf("static market: fx vol %s: %w", pair, err)
		}
	}
	for name, ec := range cfg.Equities {
		s.eqSpot[name] = ec.Spot
		s.dividends[name] = NewFlatCurve(s.clock, s.dc, ec.DividendYield)
		if s.eqVols[name], err = s.termVol(ec.Vol); err != nil {
			return nil, fmt.Errorf("static market: equity vol %s: %w", name, err)
		}
	}
	for name, v := range cfg.SecuritySpreads {
		s.spreads[name] = v
	}
	return s, nil
}

func (s *Static) dayCounter(name string) (dates.DayCounter, error) {
	if name == "" {
		return s.dc, nil
	}
	return dates.ParseDayCounter(name)
}

func (s *Static) curve(cc CurveConfig) (YieldCurve, error) {
	dc, err := s.dayCounter(cc.DayCounter)
	if err != nil {
		return nil, err
	}
	if len(cc.Tenors) == 0 {
		return NewFlatCurve(s.clock, dc, cc.Rate), nil
	}
	tenors, err := dates.ParsePeriods(cc.Tenors)
	if err != nil {
		return nil, err
	}
	return NewZeroCurve(s.clock, dc, PillarTimes(s.asof, dc, tenors), cc.Rates)
}

// index infers currency and tenor from names like EUR-EURIBOR-6M.
func (s *Static) index(name string, ic IndexConfig) (*IborIndex, error) {
	parts := strings.Split(name, "-")
	ccy, tenor := ic.Currency, ic.Tenor
	if ccy == "" {
		ccy = parts[0]
	}
	if tenor == "" {
		tenor = parts[len(parts)-1]
	}
	p, err := dates.ParsePeriod(tenor)
	if err != nil {
		return nil, err
	}
	dc := dates.Actual360
	if ic.DayCounter != "" {
		if dc, err = dates.ParseDayCounter(ic.DayCounter); err != nil {
			return nil, err
		}
	}
	curve, err := s.curve(ic.Curve)
	if err != nil {
		return nil, err
	}
	return NewIborIndex(name, ccy, p, dc, curve, s.Fixings), nil
}

func (s *Static) times(tenors []string) ([]float64, error) {
	ps, err := dates.ParsePeriods(tenors)
	if err != nil {
		return nil, err
	}
	return PillarTimes(s.asof, s.dc, ps), nil
}

func gridQuotes(vols [][]float64, rows, cols int, flat float64) ([]Quote, error) {
	out := make([]Quote, 0, rows*cols)
	if len(vols) == 0 {
		for i := 0; i < rows*cols; i++ {
			out = append(out, ConstQuote(flat))
		}
		return out, nil
	}
	if len(vols) != rows {
		return nil, fmt.Errorf("%d vol rows for %d expiries", len(vols), rows)
	}
	for _, row := range vols {
		if len(row) != cols {
			return nil, fmt.Errorf("vol row has %d values, want %d", len(row), cols)
		}
		for _, v := range row {
			out = append(out, ConstQuote(v))
		}
	}
	return out, nil
}

func (s *Static) swaptionVol(vc SwaptionVolConfig) (SwaptionVolSource, error) {
	vt, err := ParseVolType(vc.Type)
	if err != nil {
		return SwaptionVolSource{}, err
	}
	if len(vc.Expiries) == 0 {
		vc.Expiries = []string{"1Y"}
	}
	if len(vc.Terms) == 0 {
		vc.Terms = []string{"1Y"}
	}
	expiries, err := s.times(vc.Expiries)
	if err != nil {
		return SwaptionVolSource{}, err
	}
	terms, err := dates.ParsePeriods(vc.Terms)
	if err != nil {
		return SwaptionVolSource{}, err
	}
	lengths := make([]float64, len(terms))
	for i, p := range terms {
		lengths[i] = p.Years()
	}
	quotes, err := gridQuotes(vc.Vols, len(expiries), len(lengths), vc.Flat)
	if err != nil {
		return SwaptionVolSource{}, err
	}
	m, err := NewSwaptionVolMatrix(s.clock, s.dc, vt, expiries, lengths, quotes, []float64{vc.Shift})
	if err != nil {
		return SwaptionVolSource{}, err
	}
	src := MatrixSource(m)
	if strings.EqualFold(vc.Shape, "cube") {
		src.Shape = ShapeCube
		src.Matrix = nil
	}
	return src, nil
}

func (s *Static) capFloorVol(vc CapFloorVolConfig) (OptionletVol, error) {
	vt, err := ParseVolType(vc.Type)
	if err != nil {
		return nil, err
	}
	if len(vc.Expiries) == 0 {
		vc.Expiries = []string{"1Y"}
	}
	if len(vc.Strikes) == 0 {
		vc.Strikes = []float64{0}
	}
	expiries, err := s.times(vc.Expiries)
	if err != nil {
		return nil, err
	}
	quotes, err := gridQuotes(vc.Vols, len(expiries), len(vc.Strikes), vc.Flat)
	if err != nil {
		return nil, err
	}
	return NewOptionletSurface(s.clock, s.dc, vt, vc.Displacement, expiries, vc.Strikes, quotes)
}

func (s *Static) termVol(vc TermVolConfig) (BlackVol, error) {
	if len(vc.Expiries) == 0 {
		return NewConstantBlackVol(s.clock, s.dc, vc.Flat), nil
	}
	times, err := s.times(vc.Expiries)
	if err != nil {
		return nil, err
	}
	if len(vc.Vols) != len(times) {
		return nil, fmt.Errorf("%d vols for %d expiries", len(vc.Vols), len(times))
	}
	quotes := make([]Quote, len(times))
	for i, v := range vc.Vols {
		quotes[i] = ConstQuote(v)
	}
	return NewBlackVarianceCurve(s.clock, s.dc, times, quotes)
}

func notFound(what, name string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, name)
}

func (s *Static) AsOf() time.Time { return s.asof }

func (s *Static) DiscountCurve(ccy, _ string) (YieldCurve, error) {
	if c, ok := s.discount[ccy]; ok {
		return c, nil
	}
	return nil, notFound("discount curve", ccy)
}

func (s *Static) YieldCurve(name, _ string) (YieldCurve, error) {
	if c, ok := s.yield[name]; ok {
		return c, nil
	}
	return nil, notFound("yield curve", name)
}

func (s *Static) IborIndex(name, _ string) (*IborIndex, error) {
	if ix, ok := s.indices[name]; ok {
		return ix, nil
	}
	return nil, notFound("index", name)
}

// FXSpot returns the rate for pair or the inverse of the reversed pair.
func (s *Static) FXSpot(pair, _ string) (float64, error) {
	if v, ok := s.fx[pair]; ok {
		return v, nil
	}
	if len(pair) == 6 {
		if v, ok := s.fx[pair[3:]+pair[:3]]; ok {
			return 1 / v, nil
		}
	}
	return 0, notFound("fx spot", pair)
}

func (s *Static) SwaptionVol(ccy, _ string) (SwaptionVolSource, error) {
	if v, ok := s.swaptions[ccy]; ok {
		return v, nil
	}
	return SwaptionVolSource{}, notFound("swaption vol", ccy)
}

func (s *Static) CapFloorVol(ccy, _ string) (OptionletVol, error) {
	if v, ok := s.capfloors[ccy]; ok {
		return v, nil
	}
	return nil, notFound("cap/floor vol", ccy)
}

func (s *Static) DefaultCurve(name, _ string) (DefaultCurve, error) {
	if c, ok := s.defaults[name]; ok {
		return c, nil
	}
	return nil, notFound("default curve", name)
}

func (s *Static) RecoveryRate(name, _ string) (float64, error) {
	if v, ok := s.recovery[name]; ok {
		return v, nil
	}
	return 0, notFound("recovery rate", name)
}

func (s *Static) FXVol(pair, _ string) (BlackVol, error) {
	if v, ok := s.fxVols[pair]; ok {
		return v, nil
	}
	return nil, notFound("fx vol", pair)
}

func (s *Static) EquitySpot(name, _ string) (float64, error) {
	if v, ok := s.eqSpot[name]; ok {
		return v, nil
	}
	return 0, notFound("equity spot", name)
}

func (s *Static) DividendCurve(name, _ string) (YieldCurve, error) {
	if c, ok := s.dividends[name]; ok {
		return c, nil
	}
	return nil, notFound("dividend curve", name)
}

func (s *Static) EquityVol(name, _ string) (BlackVol, error) {
	if v, ok := s.eqVols[name]; ok {
		return v, nil
	}
	return nil, notFound("equity vol", name)
}

func (s *Static) SecuritySpread(name, _ string) (float64, error) {
	if v, ok := s.spreads[name]; ok {
		return v, nil
	}
	return 0, notFound("security spread", name)
}
