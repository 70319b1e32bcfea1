package marketdata

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// BlackVol is a Black volatility term structure, optionally strike
// dependent. A strike of zero asks for the at-the-money level.
type BlackVol interface {
	Clock
	DayCounter() dates.DayCounter
	BlackVol(t, strike float64) float64
	BlackVariance(t, strike float64) float64
}

func varianceFromVol(vol, t float64) float64 {
	if t <= 0 {
		return 0
	}
	return vol * vol * t
}

func volFromVariance(v, t float64) float64 {
	if t <= 0 || v <= 0 {
		return 0
	}
	return math.Sqrt(v / t)
}

// BlackVarianceCurve is an at-the-money vol curve over expiry pillars. It
// interpolates linearly in total variance and keeps the last vol beyond the
// last pillar.
type BlackVarianceCurve struct {
	lazy
	clock  Clock
	dc     dates.DayCounter
	times  []float64
	quotes []Quote

	ip      linear
	lastVol float64
	lastT   float64
}

func NewBlackVarianceCurve(clock Clock, dc dates.DayCounter, times []float64, quotes []Quote) (*BlackVarianceCurve, error) {
	if len(times) != len(quotes) || len(times) == 0 {
		return nil, fmt.Errorf("black variance curve: need matching non-empty times and quotes, got %d and %d", len(times), len(quotes))
	}
	if times[0] <= 0 || !strictlyIncreasing(times) {
		return nil, fmt.Errorf("black variance curve: expiry times must be positive and strictly increasing")
	}
	c := &BlackVarianceCurve{clock: clock, dc: dc, times: times, quotes: quotes}
	c.compute = c.fit
	return c, nil
}

func (c *BlackVarianceCurve) fit() {
	xs := make([]float64, 0, len(c.times)+1)
	ws := make([]float64, 0, len(c.times)+1)
	xs = append(xs, 0)
	ws = append(ws, 0)
	for i, t := range c.times {
		xs = append(xs, t)
		ws = append(ws, varianceFromVol(c.quotes[i].Value(), t))
	}
	_ = c.ip.fit(xs, ws)
	c.lastT = c.times[len(c.times)-1]
	c.lastVol = c.quotes[len(c.quotes)-1].Value()
}

func (c *BlackVarianceCurve) Quotes() []Quote { return c.quotes }

func (c *BlackVarianceCurve) ReferenceDate() time.Time { return c.clock.ReferenceDate() }
func (c *BlackVarianceCurve) DayCounter() dates.DayCounter { return c.dc }

func (c *BlackVarianceCurve) BlackVariance(t, _ float64) float64 {
	if t <= 0 {
		return 0
	}
	c.ensure()
	if t > c.lastT {
		return varianceFromVol(c.lastVol, t)
	}
	return c.ip.at(t)
}

func (c *BlackVarianceCurve) BlackVol(t, strike float64) float64 {
	if t <= 0 {
		c.ensure()
		return c.quotes[0].Value()
	}
	return volFromVariance(c.BlackVariance(t, strike), t)
}

// NewConstantBlackVol returns a flat vol structure.
func NewConstantBlackVol(clock Clock, dc dates.DayCounter, vol float64) *BlackVarianceCurve {
	c, _ := NewBlackVarianceCurve(clock, dc, []float64{1}, []Quote{ConstQuote(vol)})
	return c
}

// DynamicBlackVol rolls today's vol structure forward with the simulation
// date according to a DecayMode. It is used when a vol is not simulated.
type DynamicBlackVol struct {
	source BlackVol
	clock  Clock
	asof   time.Time
	mode   DecayMode
}

func NewDynamicBlackVol(source BlackVol, clock Clock, asof time.Time, mode DecayMode) *DynamicBlackVol {
	return &DynamicBlackVol{source: source, clock: clock, asof: asof, mode: mode}
}

func (d *DynamicBlackVol) ReferenceDate() time.Time { return d.clock.ReferenceDate() }
func (d *DynamicBlackVol) DayCounter() dates.DayCounter { return d.source.DayCounter() }
func (d *DynamicBlackVol) Mode() DecayMode { return d.mode }

func (d *DynamicBlackVol) BlackVariance(t, strike float64) float64 {
	tau := d.source.DayCounter().YearFraction(d.asof, d.clock.ReferenceDate())
	w := func(x float64) float64 { return d.source.BlackVariance(x, strike) }
	return decayedVariance(d.mode, w, tau, t)
}

func (d *DynamicBlackVol) BlackVol(t, strike float64) float64 {
	if t <= 0 {
		return d.source.BlackVol(0, strike)
	}
	return volFromVariance(d.BlackVariance(t, strike), t)
}

// InvertedBlackVol reads an FX vol quoted for the reversed pair. Only the
// strike changes: a strike K in the requested pair is 1/K in the source.
type InvertedBlackVol struct {
	source BlackVol
}

func NewInvertedBlackVol(source BlackVol) *InvertedBlackVol {
	return &InvertedBlackVol{source: source}
}

func (v *InvertedBlackVol) ReferenceDate() time.Time { return v.source.ReferenceDate() }
func (v *InvertedBlackVol) DayCounter() dates.DayCounter { return v.source.DayCounter() }

func invertStrike(k float64) float64 {
	if k <= 0 {
		return k
	}
	return 1 / k
}

func (v *InvertedBlackVol) BlackVol(t, strike float64) float64 {
	return v.source.BlackVol(t, invertStrike(strike))
}

func (v *InvertedBlackVol) BlackVariance(t, strike float64) float64 {
	return v.source.BlackVariance(t, invertStrike(strike))
}
