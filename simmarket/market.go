// Package simmarket turns a stream of risk factor scenarios into a live
// market. Every simulated pillar or vol point is a quote cell keyed by its
// scenario.Key; Update writes one scenario into the cells and lets the term
// structures built on them catch up.
package simmarket

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/scenario"
)

// VolKind says how a volatility structure moves during simulation.
type VolKind int

const (
	// Simulated structures are built on quote cells the scenario sets.
	Simulated VolKind = iota
	// DeterministicDecay structures have no cells and age with a DecayMode.
	DeterministicDecay
	// Inverted structures read the reversed FX pair.
	Inverted
)

func (k VolKind) String() string {
	switch k {
	case Simulated:
		return "Simulated"
	case DeterministicDecay:
		return "DeterministicDecay"
	case Inverted:
		return "Inverted"
	}
	return fmt.Sprintf("VolKind(%d)", int(k))
}

type blackVolEntry struct {
	kind      VolKind
	simulated *marketdata.BlackVarianceCurve
	decayed   *marketdata.DynamicBlackVol
	inverted  *marketdata.InvertedBlackVol
}

func (e blackVolEntry) vol() marketdata.BlackVol {
	switch e.kind {
	case Simulated:
		return e.simulated
	case DeterministicDecay:
		return e.decayed
	}
	return e.inverted
}

type swaptionVolEntry struct {
	kind      VolKind
	simulated *marketdata.SwaptionVolMatrix
	decayed   *marketdata.DynamicSwaptionVol
}

func (e swaptionVolEntry) vol() marketdata.SwaptionVol {
	if e.kind == Simulated {
		return e.simulated
	}
	return e.decayed
}

type optionletVolEntry struct {
	kind      VolKind
	simulated *marketdata.OptionletSurface
	decayed   *marketdata.DynamicOptionletVol
}

func (e optionletVolEntry) vol() marketdata.OptionletVol {
	if e.kind == Simulated {
		return e.simulated
	}
	return e.decayed
}

// simClock is the reference date all simulated structures float with.
type simClock struct{ d time.Time }

func (c *simClock) ReferenceDate() time.Time { return c.d }

// Option configures a Market.
type Option func(*Market)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Market) { m.log = l }
}

// WithObservationMode selects how structures follow quote writes.
func WithObservationMode(mode ObservationMode) Option {
	return func(m *Market) { m.mode = mode }
}

// WithAggregationData attaches a sink for numeraire, fixing and FX series.
func WithAggregationData(a *cube.AggregationData) Option {
	return func(m *Market) { m.asd = a }
}

// WithVolConverter replaces the converter used to turn non-normal swaption
// matrices into normal ones.
func WithVolConverter(c marketdata.VolConverter) Option {
	return func(m *Market) { m.converter = c }
}

// Market is a simulation market. It implements marketdata.Market.
type Market struct {
	log       zerolog.Logger
	mode      ObservationMode
	converter marketdata.VolConverter
	asd       *cube.AggregationData

	gen    scenario.Generator
	params *Parameters
	asof   time.Time
	config string
	base   string

	bank    *marketdata.QuoteBank
	clock   *simClock
	fixings *FixingManager
	today   *scenario.SimpleScenario
	pillars map[scenario.Key]float64

	numeraire  float64
	lastDate   time.Time
	sample     int
	fixingTime time.Duration

	discount  map[string]marketdata.YieldCurve
	yield     map[string]marketdata.YieldCurve
	indices   map[string]*marketdata.IborIndex
	fx        map[string]marketdata.Quote
	spreads   map[string]marketdata.Quote
	swaptions map[string]swaptionVolEntry
	capfloors map[string]optionletVolEntry
	defaults  map[string]marketdata.DefaultCurve
	recovery  map[string]marketdata.Quote
	fxVols    map[string]blackVolEntry
	eqSpots   map[string]marketdata.Quote
	dividends map[string]marketdata.YieldCurve
	eqVols    map[string]blackVolEntry
}

// New builds the quote bank and every simulated structure from today's
// market. Configuration errors are returned before any simulation starts.
func New(gen scenario.Generator, snap marketdata.Snapshot, params *Parameters, configuration string, opts ...Option) (*Market, error) {
	if params == nil {
		params = &Parameters{}
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("simulation parameters: %w", err)
	}
	asof := snap.AsOf()
	m := &Market{
		log:       zerolog.Nop(),
		gen:       gen,
		params:    params,
		asof:      asof,
		config:    configuration,
		base:      params.BaseCurrency,
		clock:     &simClock{d: asof},
		fixings:   NewFixingManager(asof),
		pillars:   map[scenario.Key]float64{},
		numeraire: 1,
		discount:  map[string]marketdata.YieldCurve{},
		yield:     map[string]marketdata.YieldCurve{},
		indices:   map[string]*marketdata.IborIndex{},
		fx:        map[string]marketdata.Quote{},
		spreads:   map[string]marketdata.Quote{},
		swaptions: map[string]swaptionVolEntry{},
		capfloors: map[string]optionletVolEntry{},
		defaults:  map[string]marketdata.DefaultCurve{},
		recovery:  map[string]marketdata.Quote{},
		fxVols:    map[string]blackVolEntry{},
		eqSpots:   map[string]marketdata.Quote{},
		dividends: map[string]marketdata.YieldCurve{},
		eqVols:    map[string]blackVolEntry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.converter == nil {
		m.converter = marketdata.NewForwardScaledConverter(marketdata.SnapshotCurves(snap, configuration))
	}
	m.bank = marketdata.NewQuoteBank(m.mode.notify())

	if err := m.build(snap); err != nil {
		return nil, err
	}
	if err := m.checkAggregation(); err != nil {
		return nil, err
	}

	m.today = scenario.NewSimpleScenario(asof)
	for _, k := range m.bank.Keys() {
		v, _ := m.bank.Value(k)
		_ = m.today.Add(k, v)
	}
	m.log.Info().
		Int("keys", m.bank.Len()).
		Str("mode", m.mode.String()).
		Str("asof", dates.Format(asof)).
		Msg("simulation market built")
	return m, nil
}

// AggregationSeries lists the series a Market with params records.
func AggregationSeries(params *Parameters) []cube.Series {
	out := []cube.Series{cube.Numeraire}
	for _, ix := range params.Aggregation.Indices {
		out = append(out, cube.IndexFixing(ix))
	}
	for _, c := range params.Aggregation.Currencies {
		if c != params.BaseCurrency {
			out = append(out, cube.FXSpot(c))
		}
	}
	return out
}

func (m *Market) checkAggregation() error {
	if m.asd == nil {
		return nil
	}
	for _, s := range AggregationSeries(m.params) {
		if !m.asd.Has(s) {
			return fmt.Errorf("aggregation data has no %s series", s)
		}
	}
	return nil
}

// Update applies the generator's next scenario for d. Repeated calls for the
// same date are successive samples; a new date starts again at sample 0.
func (m *Market) Update(d time.Time) error {
	if d.Before(m.asof) {
		return fmt.Errorf("update date %s is before asof %s", dates.Format(d), dates.Format(m.asof))
	}
	if !m.lastDate.IsZero() && d.Before(m.lastDate) {
		return fmt.Errorf("update date %s is before previous update %s, reset first", dates.Format(d), dates.Format(m.lastDate))
	}
	if d.Equal(m.lastDate) {
		m.sample++
	} else {
		m.sample = 0
	}
	m.lastDate = d
	m.clock.d = d

	sc, err := m.gen.Next(d)
	if err != nil {
		return fmt.Errorf("scenario for %s: %w", dates.Format(d), err)
	}
	if err := m.apply(d, sc); err != nil {
		m.log.Error().Err(err).Str("date", dates.Format(d)).Int("sample", m.sample).Msg("scenario does not match market")
		return err
	}
	m.numeraire = sc.Numeraire()

	start := time.Now()
	err = m.fixings.Update(d, m.sample)
	m.fixingTime += time.Since(start)
	if err != nil {
		return err
	}
	if m.asd != nil {
		if err := m.record(d); err != nil {
			return err
		}
	}
	return nil
}

// apply checks the scenario against the bank and writes it. Nothing is
// written when the key sets differ.
func (m *Market) apply(d time.Time, sc scenario.Scenario) error {
	keys := sc.Keys()
	pos := make([]int, len(keys))
	var extra []scenario.Key
	for n, k := range keys {
		i, ok := m.bank.Lookup(k)
		if !ok {
			extra = append(extra, k)
			continue
		}
		pos[n] = i
	}
	if len(extra) > 0 {
		return &ScenarioSizeMismatchError{Date: d, Registered: m.bank.Len(), Supplied: len(keys), Extra: extra}
	}
	if len(keys) != m.bank.Len() {
		var missing []scenario.Key
		for _, k := range m.bank.Keys() {
			if !sc.Has(k) {
				missing = append(missing, k)
			}
		}
		return &MissingScenarioDataError{Date: d, Missing: missing}
	}

	m.bank.BeginBatch()
	for n, k := range keys {
		v, err := sc.Get(k)
		if err != nil {
			m.bank.EndBatch()
			return err
		}
		m.bank.SetAt(pos[n], v)
	}
	m.bank.EndBatch()
	return nil
}

func (m *Market) record(d time.Time) error {
	if err := m.asd.SetCurrent(cube.Numeraire, m.numeraire); err != nil {
		return err
	}
	for _, name := range m.params.Aggregation.Indices {
		v, err := m.indices[name].Fixing(d)
		if err != nil {
			return fmt.Errorf("aggregation fixing %s: %w", name, err)
		}
		if err := m.asd.SetCurrent(cube.IndexFixing(name), v); err != nil {
			return err
		}
	}
	for _, c := range m.params.Aggregation.Currencies {
		if c == m.base {
			continue
		}
		v, err := m.FXSpot(c + m.base)
		if err != nil {
			return fmt.Errorf("aggregation fx %s: %w", c, err)
		}
		if err := m.asd.SetCurrent(cube.FXSpot(c), v); err != nil {
			return err
		}
	}
	m.asd.Next()
	return nil
}

// Reset rewinds the generator and the aggregation cursor, restores today's
// values and drops path fixings.
func (m *Market) Reset() error {
	if err := m.gen.Reset(); err != nil {
		return fmt.Errorf("reset scenario generator: %w", err)
	}
	if m.asd != nil {
		m.asd.ResetCursor()
	}
	m.bank.BeginBatch()
	for _, k := range m.today.Keys() {
		v, _ := m.today.Get(k)
		_ = m.bank.Set(k, v)
	}
	m.clock.d = m.asof
	m.bank.EndBatch()
	m.fixings.Reset()
	m.lastDate = time.Time{}
	m.sample = 0
	m.numeraire = 1
	return nil
}

// SetGenerator replaces the scenario source and resets the market. Shift
// generators are built from BaseScenario, so they can only be attached
// once the market exists.
func (m *Market) SetGenerator(gen scenario.Generator) error {
	if gen == nil {
		return fmt.Errorf("simulation market: generator is required")
	}
	m.gen = gen
	return m.Reset()
}

// PillarTime is the year fraction of a curve or survival pillar key. Other
// keys report false.
func (m *Market) PillarTime(k scenario.Key) (float64, bool) {
	t, ok := m.pillars[k]
	return t, ok
}

// RegisterFixingDates tells the market which future fixings of index some
// trade will read.
func (m *Market) RegisterFixingDates(index string, ds ...time.Time) error {
	return m.fixings.Register(index, ds...)
}

// Keys returns the registered keys in key order.
func (m *Market) Keys() []scenario.Key { return m.bank.Keys() }

// Quote returns the current value of key.
func (m *Market) Quote(k scenario.Key) (float64, error) { return m.bank.Value(k) }

// BaseScenario is today's value of every registered key. Replaying it
// leaves the market unchanged.
func (m *Market) BaseScenario() *scenario.SimpleScenario {
	return scenario.Clone(m.today, m.asof)
}

// FixingTime is the time spent moving path fixings since construction.
func (m *Market) FixingTime() time.Duration { return m.fixingTime }

// Sample is the sample index of the last update.
func (m *Market) Sample() int { return m.sample }

// Mode returns the observation mode.
func (m *Market) Mode() ObservationMode { return m.mode }

// VolKind reports how the vol structure of the given category and name is
// simulated.
func (m *Market) VolKind(t scenario.KeyType, name string) (VolKind, bool) {
	switch t {
	case scenario.SwaptionVolatility:
		e, ok := m.swaptions[name]
		return e.kind, ok
	case scenario.OptionletVolatility:
		e, ok := m.capfloors[name]
		return e.kind, ok
	case scenario.FXVolatility:
		e, ok := m.fxVols[name]
		return e.kind, ok
	case scenario.EquityVolatility:
		e, ok := m.eqVols[name]
		return e.kind, ok
	}
	return 0, false
}

func (m *Market) AsOf() time.Time          { return m.asof }
func (m *Market) ReferenceDate() time.Time { return m.clock.d }
func (m *Market) BaseCurrency() string     { return m.base }
func (m *Market) Numeraire() float64       { return m.numeraire }

func notFound(what, name string) error {
	return fmt.Errorf("%w: simulated %s %s", marketdata.ErrNotFound, what, name)
}

func (m *Market) DiscountCurve(ccy string) (marketdata.YieldCurve, error) {
	if c, ok := m.discount[ccy]; ok {
		return c, nil
	}
	return nil, notFound("discount curve", ccy)
}

func (m *Market) YieldCurve(name string) (marketdata.YieldCurve, error) {
	if c, ok := m.yield[name]; ok {
		return c, nil
	}
	return nil, notFound("yield curve", name)
}

func (m *Market) IborIndex(name string) (*marketdata.IborIndex, error) {
	if ix, ok := m.indices[name]; ok {
		return ix, nil
	}
	return nil, notFound("index", name)
}

// FXSpot resolves pair directly, as the inverse of the reversed pair, or
// through the base currency.
func (m *Market) FXSpot(pair string) (float64, error) {
	if len(pair) != 6 {
		return 0, fmt.Errorf("fx pair %q must have 6 letters", pair)
	}
	from, to := pair[:3], pair[3:]
	if from == to {
		return 1, nil
	}
	if q, ok := m.fx[pair]; ok {
		return q.Value(), nil
	}
	if q, ok := m.fx[to+from]; ok {
		return 1 / q.Value(), nil
	}
	if from != m.base && to != m.base {
		a, okA := m.fx[from+m.base]
		b, okB := m.fx[to+m.base]
		if okA && okB {
			return a.Value() / b.Value(), nil
		}
	}
	return 0, notFound("fx spot", pair)
}

func (m *Market) SecuritySpread(name string) (float64, error) {
	if q, ok := m.spreads[name]; ok {
		return q.Value(), nil
	}
	return 0, notFound("security spread", name)
}

func (m *Market) SwaptionVol(ccy string) (marketdata.SwaptionVol, error) {
	if e, ok := m.swaptions[ccy]; ok {
		return e.vol(), nil
	}
	return nil, notFound("swaption vol", ccy)
}

func (m *Market) CapFloorVol(ccy string) (marketdata.OptionletVol, error) {
	if e, ok := m.capfloors[ccy]; ok {
		return e.vol(), nil
	}
	return nil, notFound("cap/floor vol", ccy)
}

func (m *Market) DefaultCurve(name string) (marketdata.DefaultCurve, error) {
	if c, ok := m.defaults[name]; ok {
		return c, nil
	}
	return nil, notFound("default curve", name)
}

func (m *Market) RecoveryRate(name string) (float64, error) {
	if q, ok := m.recovery[name]; ok {
		return q.Value(), nil
	}
	return 0, notFound("recovery rate", name)
}

func (m *Market) FXVol(pair string) (marketdata.BlackVol, error) {
	if e, ok := m.fxVols[pair]; ok {
		return e.vol(), nil
	}
	return nil, notFound("fx vol", pair)
}

func (m *Market) EquitySpot(name string) (float64, error) {
	if q, ok := m.eqSpots[name]; ok {
		return q.Value(), nil
	}
	return 0, notFound("equity spot", name)
}

func (m *Market) DividendCurve(name string) (marketdata.YieldCurve, error) {
	if c, ok := m.dividends[name]; ok {
		return c, nil
	}
	return nil, notFound("dividend curve", name)
}

func (m *Market) EquityVol(name string) (marketdata.BlackVol, error) {
	if e, ok := m.eqVols[name]; ok {
		return e.vol(), nil
	}
	return nil, notFound("equity vol", name)
}

var _ marketdata.Market = (*Market)(nil)
