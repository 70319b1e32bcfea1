package marketdata

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// DefaultCurve gives survival probabilities measured from its reference
// date.
type DefaultCurve interface {
	Clock
	DayCounter() dates.DayCounter
	SurvivalProbability(t float64) float64
}

// HazardRate returns the average hazard rate to t.
func HazardRate(c DefaultCurve, t float64) float64 {
	if t <= 0 {
		t = 1.0 / 365
	}
	return -math.Log(c.SurvivalProbability(t)) / t
}

// InterpolatedSurvivalCurve interpolates log survival probabilities, which
// is piecewise flat hazard, and keeps the last hazard rate beyond the last
// pillar.
type InterpolatedSurvivalCurve struct {
	lazy
	clock  Clock
	dc     dates.DayCounter
	times  []float64
	quotes []Quote
	ip     linear
}

func NewInterpolatedSurvivalCurve(clock Clock, dc dates.DayCounter, times []float64, quotes []Quote) (*InterpolatedSurvivalCurve, error) {
	times, quotes, err := discountPillars(times, quotes)
	if err != nil {
		return nil, fmt.Errorf("survival %w", err)
	}
	c := &InterpolatedSurvivalCurve{
		clock:  clock,
		dc:     dc,
		times:  times,
		quotes: quotes,
		ip:     linear{right: extrapolateLinear},
	}
	c.compute = c.fit
	return c, nil
}

func (c *InterpolatedSurvivalCurve) fit() {
	logs := make([]float64, len(c.quotes))
	for i, q := range c.quotes {
		// floor keeps the log finite for a fully defaulted name
		logs[i] = math.Log(math.Max(q.Value(), 1e-18))
	}
	_ = c.ip.fit(c.times, logs)
}

func (c *InterpolatedSurvivalCurve) Quotes() []Quote { return c.quotes }

func (c *InterpolatedSurvivalCurve) ReferenceDate() time.Time { return c.clock.ReferenceDate() }
func (c *InterpolatedSurvivalCurve) DayCounter() dates.DayCounter { return c.dc }

func (c *InterpolatedSurvivalCurve) SurvivalProbability(t float64) float64 {
	if t <= 0 {
		return 1
	}
	c.ensure()
	return math.Exp(c.ip.at(t))
}

// NewFlatHazardCurve builds a fixed curve with a constant hazard rate.
func NewFlatHazardCurve(clock Clock, dc dates.DayCounter, hazard float64) *InterpolatedSurvivalCurve {
	c, _ := NewInterpolatedSurvivalCurve(clock, dc, []float64{0, 1}, []Quote{ConstQuote(1), ConstQuote(math.Exp(-hazard))})
	return c
}
