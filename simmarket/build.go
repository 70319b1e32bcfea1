package simmarket

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/scenario"
)

func (m *Market) build(snap marketdata.Snapshot) error {
	steps := []struct {
		name string
		fn   func(marketdata.Snapshot) error
	}{
		{"fx spots", m.buildFX},
		{"discount curves", m.buildDiscountCurves},
		{"yield curves", m.buildYieldCurves},
		{"indices", m.buildIndices},
		{"security spreads", m.buildSpreads},
		{"swaption vols", m.buildSwaptionVols},
		{"cap/floor vols", m.buildCapFloorVols},
		{"default curves", m.buildDefaultCurves},
		{"fx vols", m.buildFXVols},
		{"equities", m.buildEquities},
	}
	for _, s := range steps {
		before := m.bank.Len()
		if err := s.fn(snap); err != nil {
			return fmt.Errorf("build simulation market %s: %w", s.name, err)
		}
		m.log.Debug().Str("category", s.name).Int("quotes", m.bank.Len()-before).Msg("built")
	}
	return nil
}

func (m *Market) register(t scenario.KeyType, name string, i int, v float64) (marketdata.Quote, error) {
	return m.bank.Register(scenario.NewKey(t, name, i), v)
}

func (m *Market) dayCounter(name string, fallback dates.DayCounter) (dates.DayCounter, error) {
	if name == "" {
		return fallback, nil
	}
	return dates.ParseDayCounter(name)
}

// curve registers one discount factor cell per tenor, seeded from today,
// and builds the floating curve on them.
func (m *Market) curve(t scenario.KeyType, name string, cp CurveParams, today marketdata.YieldCurve) (marketdata.YieldCurve, error) {
	tenors, err := cp.TenorsFor(name)
	if err != nil {
		return nil, err
	}
	if err := dates.ValidateIncreasing(m.asof, tenors); err != nil {
		return nil, fmt.Errorf("%s %s: %w", t, name, err)
	}
	dc, err := m.dayCounter(cp.DayCounter, today.DayCounter())
	if err != nil {
		return nil, err
	}
	times := marketdata.PillarTimes(m.asof, dc, tenors)
	quotes := make([]marketdata.Quote, len(times))
	for i, tt := range times {
		if quotes[i], err = m.register(t, name, i, today.Discount(tt)); err != nil {
			return nil, err
		}
		m.pillars[scenario.NewKey(t, name, i)] = tt
	}
	if m.mode.directCurves() {
		return marketdata.NewDirectDiscountCurve(m.clock, dc, times, quotes)
	}
	c, err := marketdata.NewInterpolatedDiscountCurve(m.clock, dc, times, quotes)
	if err != nil {
		return nil, err
	}
	m.bank.Observe(c, quotes...)
	return c, nil
}

func (m *Market) buildFX(snap marketdata.Snapshot) error {
	for _, pair := range m.params.FXPairs() {
		v, err := snap.FXSpot(pair, m.config)
		if err != nil {
			return err
		}
		if m.fx[pair], err = m.register(scenario.FXSpot, pair, 0, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Market) buildDiscountCurves(snap marketdata.Snapshot) error {
	for _, ccy := range m.params.DiscountNames() {
		today, err := snap.DiscountCurve(ccy, m.config)
		if err != nil {
			return err
		}
		if m.discount[ccy], err = m.curve(scenario.DiscountCurve, ccy, m.params.DiscountCurves, today); err != nil {
			return err
		}
	}
	return nil
}

func (m *Market) buildYieldCurves(snap marketdata.Snapshot) error {
	for _, name := range m.params.YieldCurves.Names {
		today, err := snap.YieldCurve(name, m.config)
		if err != nil {
			return err
		}
		if m.yield[name], err = m.curve(scenario.YieldCurve, name, m.params.YieldCurves, today); err != nil {
			return err
		}
	}
	return nil
}

func (m *Market) buildIndices(snap marketdata.Snapshot) error {
	for _, name := range m.params.Indices.Names {
		today, err := snap.IborIndex(name, m.config)
		if err != nil {
			return err
		}
		c, err := m.curve(scenario.IndexCurve, name, m.params.Indices, today.ForwardingCurve())
		if err != nil {
			return err
		}
		ix := today.Clone(c, m.fixings)
		m.fixings.AddIndex(ix, today.Fixings())
		m.indices[name] = ix
	}
	return nil
}

func (m *Market) buildSpreads(snap marketdata.Snapshot) error {
	for _, name := range m.params.SecuritySpreads {
		v, err := snap.SecuritySpread(name, m.config)
		if err != nil {
			return err
		}
		if m.spreads[name], err = m.register(scenario.SecuritySpread, name, 0, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Market) expiryTimes(expiries []string, dc dates.DayCounter) ([]float64, error) {
	ps, err := dates.ParsePeriods(expiries)
	if err != nil {
		return nil, err
	}
	if err := dates.ValidateIncreasing(m.asof, ps); err != nil {
		return nil, err
	}
	return marketdata.PillarTimes(m.asof, dc, ps), nil
}

func (m *Market) buildSwaptionVols(snap marketdata.Snapshot) error {
	vp := m.params.SwaptionVols
	for _, ccy := range vp.Names {
		src, err := snap.SwaptionVol(ccy, m.config)
		if err != nil {
			return err
		}
		if !vp.Simulate {
			mode, err := vp.Decay()
			if err != nil {
				return err
			}
			m.swaptions[ccy] = swaptionVolEntry{
				kind:    DeterministicDecay,
				decayed: marketdata.NewDynamicSwaptionVol(src.Vol, m.clock, m.asof, mode),
			}
			continue
		}

		base := src.Vol
		switch {
		case src.Shape == marketdata.ShapeMatrix && src.Matrix.VolType() != marketdata.Normal:
			nm, err := m.converter.ToNormal(ccy, src.Matrix)
			if err != nil {
				return err
			}
			base = nm
			m.log.Info().Str("ccy", ccy).Msg("swaption vol matrix converted to normal")
		case src.Shape != marketdata.ShapeMatrix && src.Vol.VolType() != marketdata.Normal:
			m.log.Warn().Str("ccy", ccy).Msg("swaption vol is not a matrix, simulating it unconverted")
		}

		expiries, err := m.expiryTimes(vp.Expiries, base.DayCounter())
		if err != nil {
			return err
		}
		terms, err := dates.ParsePeriods(vp.Terms)
		if err != nil {
			return err
		}
		lengths := make([]float64, len(terms))
		for j, p := range terms {
			lengths[j] = p.Years()
		}

		quotes := make([]marketdata.Quote, 0, len(expiries)*len(lengths))
		shifts := make([]float64, 0, cap(quotes))
		for i, e := range expiries {
			for j, l := range lengths {
				q, err := m.register(scenario.SwaptionVolatility, ccy, i*len(lengths)+j, base.Volatility(e, l, 0))
				if err != nil {
					return err
				}
				quotes = append(quotes, q)
				shifts = append(shifts, base.Shift(e, l))
			}
		}
		mx, err := marketdata.NewSwaptionVolMatrix(m.clock, base.DayCounter(), base.VolType(), expiries, lengths, quotes, shifts)
		if err != nil {
			return err
		}
		m.bank.Observe(mx, quotes...)
		m.swaptions[ccy] = swaptionVolEntry{kind: Simulated, simulated: mx}
	}
	return nil
}

func (m *Market) buildCapFloorVols(snap marketdata.Snapshot) error {
	vp := m.params.CapFloorVols
	for _, ccy := range vp.Names {
		src, err := snap.CapFloorVol(ccy, m.config)
		if err != nil {
			return err
		}
		if !vp.Simulate {
			mode, err := vp.Decay()
			if err != nil {
				return err
			}
			m.capfloors[ccy] = optionletVolEntry{
				kind:    DeterministicDecay,
				decayed: marketdata.NewDynamicOptionletVol(src, m.clock, m.asof, mode),
			}
			continue
		}

		expiries, err := m.expiryTimes(vp.Expiries, src.DayCounter())
		if err != nil {
			return err
		}
		strikes := vp.Strikes
		if len(strikes) == 0 {
			strikes = []float64{0}
		}
		quotes := make([]marketdata.Quote, 0, len(expiries)*len(strikes))
		for i, e := range expiries {
			for j, k := range strikes {
				q, err := m.register(scenario.OptionletVolatility, ccy, i*len(strikes)+j, src.Volatility(e, k))
				if err != nil {
					return err
				}
				quotes = append(quotes, q)
			}
		}
		s, err := marketdata.NewOptionletSurface(m.clock, src.DayCounter(), src.VolType(), src.Displacement(), expiries, strikes, quotes)
		if err != nil {
			return err
		}
		m.bank.Observe(s, quotes...)
		m.capfloors[ccy] = optionletVolEntry{kind: Simulated, simulated: s}
	}
	return nil
}

func (m *Market) buildDefaultCurves(snap marketdata.Snapshot) error {
	cp := m.params.DefaultCurves
	for _, name := range cp.Names {
		today, err := snap.DefaultCurve(name, m.config)
		if err != nil {
			return err
		}
		tenors, err := cp.TenorsFor(name)
		if err != nil {
			return err
		}
		dc, err := m.dayCounter(cp.DayCounter, today.DayCounter())
		if err != nil {
			return err
		}
		times := marketdata.PillarTimes(m.asof, dc, tenors)
		quotes := make([]marketdata.Quote, len(times))
		for i, t := range times {
			if quotes[i], err = m.register(scenario.SurvivalProbability, name, i, today.SurvivalProbability(t)); err != nil {
				return err
			}
			m.pillars[scenario.NewKey(scenario.SurvivalProbability, name, i)] = t
		}
		c, err := marketdata.NewInterpolatedSurvivalCurve(m.clock, dc, times, quotes)
		if err != nil {
			return err
		}
		m.bank.Observe(c, quotes...)
		m.defaults[name] = c

		rr, err := snap.RecoveryRate(name, m.config)
		if err != nil {
			return err
		}
		if m.recovery[name], err = m.register(scenario.RecoveryRate, name, 0, rr); err != nil {
			return err
		}
	}
	return nil
}

// blackVol builds a simulated or decaying structure for one FX pair or
// equity name.
func (m *Market) blackVol(t scenario.KeyType, name string, vp VolParams, src marketdata.BlackVol) (blackVolEntry, error) {
	if !vp.Simulate {
		mode, err := vp.Decay()
		if err != nil {
			return blackVolEntry{}, err
		}
		return blackVolEntry{kind: DeterministicDecay, decayed: marketdata.NewDynamicBlackVol(src, m.clock, m.asof, mode)}, nil
	}
	times, err := m.expiryTimes(vp.Expiries, src.DayCounter())
	if err != nil {
		return blackVolEntry{}, err
	}
	quotes := make([]marketdata.Quote, len(times))
	for i, tt := range times {
		if quotes[i], err = m.register(t, name, i, src.BlackVol(tt, 0)); err != nil {
			return blackVolEntry{}, err
		}
	}
	c, err := marketdata.NewBlackVarianceCurve(m.clock, src.DayCounter(), times, quotes)
	if err != nil {
		return blackVolEntry{}, err
	}
	m.bank.Observe(c, quotes...)
	return blackVolEntry{kind: Simulated, simulated: c}, nil
}

func reversePair(pair string) string { return pair[3:] + pair[:3] }

func (m *Market) buildFXVols(snap marketdata.Snapshot) error {
	vp := m.params.FXVols
	for _, pair := range vp.Names {
		src, err := snap.FXVol(pair, m.config)
		if errors.Is(err, marketdata.ErrNotFound) {
			var rev marketdata.BlackVol
			if rev, err = snap.FXVol(reversePair(pair), m.config); err == nil {
				src = marketdata.NewInvertedBlackVol(rev)
			}
		}
		if err != nil {
			return err
		}
		e, err := m.blackVol(scenario.FXVolatility, pair, vp, src)
		if err != nil {
			return err
		}
		m.fxVols[pair] = e
	}
	for _, pair := range vp.Names {
		rev := reversePair(pair)
		if _, ok := m.fxVols[rev]; ok {
			continue
		}
		m.fxVols[rev] = blackVolEntry{kind: Inverted, inverted: marketdata.NewInvertedBlackVol(m.fxVols[pair].vol())}
	}
	return nil
}

func (m *Market) buildEquities(snap marketdata.Snapshot) error {
	cp := m.params.Equities
	for _, name := range cp.Names {
		spot, err := snap.EquitySpot(name, m.config)
		if err != nil {
			return err
		}
		if m.eqSpots[name], err = m.register(scenario.EquitySpot, name, 0, spot); err != nil {
			return err
		}
		today, err := snap.DividendCurve(name, m.config)
		if err != nil {
			return err
		}
		if m.dividends[name], err = m.curve(scenario.DividendYield, name, cp, today); err != nil {
			return err
		}
	}
	for _, name := range m.params.EquityVolNames() {
		src, err := snap.EquityVol(name, m.config)
		if err != nil {
			return err
		}
		if m.eqVols[name], err = m.blackVol(scenario.EquityVolatility, name, m.params.EquityVols, src); err != nil {
			return err
		}
	}
	return nil
}
