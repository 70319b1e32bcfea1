package marketdata

import (
	"math"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// OptionletVol is a cap/floor optionlet volatility by expiry and strike.
type OptionletVol interface {
	Clock
	DayCounter() dates.DayCounter
	VolType() VolType
	Displacement() float64
	Volatility(t, strike float64) float64
	BlackVariance(t, strike float64) float64
}

// OptionletSurface is an expiry x strike optionlet vol grid. Quote
// i*len(strikes)+j is expiry i, strike j.
type OptionletSurface struct {
	lazy
	clock        Clock
	dc           dates.DayCounter
	volType      VolType
	displacement float64
	expiries     []float64
	strikes      []float64
	quotes       []Quote

	vals []float64
}

func NewOptionletSurface(clock Clock, dc dates.DayCounter, volType VolType, displacement float64, expiries, strikes []float64, quotes []Quote) (*OptionletSurface, error) {
	if err := checkGrid("optionlet vol", expiries, strikes, len(quotes)); err != nil {
		return nil, err
	}
	s := &OptionletSurface{
		clock:        clock,
		dc:           dc,
		volType:      volType,
		displacement: displacement,
		expiries:     expiries,
		strikes:      strikes,
		quotes:       quotes,
	}
	s.compute = s.fill
	return s, nil
}

func (s *OptionletSurface) fill() {
	if s.vals == nil {
		s.vals = make([]float64, len(s.quotes))
	}
	for i, q := range s.quotes {
		s.vals[i] = q.Value()
	}
}

func (s *OptionletSurface) ReferenceDate() time.Time { return s.clock.ReferenceDate() }
func (s *OptionletSurface) DayCounter() dates.DayCounter { return s.dc }
func (s *OptionletSurface) VolType() VolType { return s.volType }
func (s *OptionletSurface) Displacement() float64 { return s.displacement }
func (s *OptionletSurface) Expiries() []float64 { return s.expiries }
func (s *OptionletSurface) Strikes() []float64 { return s.strikes }
func (s *OptionletSurface) Quotes() []Quote { return s.quotes }

func (s *OptionletSurface) Volatility(t, strike float64) float64 {
	s.ensure()
	return bilinear(s.expiries, s.strikes, s.vals, t, strike)
}

func (s *OptionletSurface) BlackVariance(t, strike float64) float64 {
	return varianceFromVol(s.Volatility(t, strike), t)
}

// DynamicOptionletVol rolls a today's optionlet vol forward with the
// simulation date according to a DecayMode.
type DynamicOptionletVol struct {
	source OptionletVol
	clock  Clock
	asof   time.Time
	mode   DecayMode
}

func NewDynamicOptionletVol(source OptionletVol, clock Clock, asof time.Time, mode DecayMode) *DynamicOptionletVol {
	return &DynamicOptionletVol{source: source, clock: clock, asof: asof, mode: mode}
}

func (d *DynamicOptionletVol) ReferenceDate() time.Time { return d.clock.ReferenceDate() }
func (d *DynamicOptionletVol) DayCounter() dates.DayCounter { return d.source.DayCounter() }
func (d *DynamicOptionletVol) VolType() VolType { return d.source.VolType() }
func (d *DynamicOptionletVol) Displacement() float64 { return d.source.Displacement() }
func (d *DynamicOptionletVol) Mode() DecayMode { return d.mode }

func (d *DynamicOptionletVol) BlackVariance(t, strike float64) float64 {
	tau := d.source.DayCounter().YearFraction(d.asof, d.clock.ReferenceDate())
	w := func(x float64) float64 { return d.source.BlackVariance(x, strike) }
	return decayedVariance(d.mode, w, tau, t)
}

func (d *DynamicOptionletVol) Volatility(t, strike float64) float64 {
	if t <= 0 {
		return d.source.Volatility(0, strike)
	}
	return math.Sqrt(d.BlackVariance(t, strike) / t)
}
