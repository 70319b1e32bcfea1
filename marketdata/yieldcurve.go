package marketdata

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// YieldCurve gives discount factors measured from its reference date.
type YieldCurve interface {
	Clock
	DayCounter() dates.DayCounter
	// Discount returns the discount factor for year fraction t.
	Discount(t float64) float64
	// DiscountDate returns the discount factor for date d.
	DiscountDate(d time.Time) float64
}

// ZeroRate returns the continuously compounded zero rate to t.
func ZeroRate(c YieldCurve, t float64) float64 {
	if t <= 0 {
		t = 1.0 / 365
	}
	return -math.Log(c.Discount(t)) / t
}

// ForwardRate returns the simply compounded forward rate between t1 and t2.
func ForwardRate(c YieldCurve, t1, t2 float64) float64 {
	if t2 <= t1 {
		return 0
	}
	return (c.Discount(t1)/c.Discount(t2) - 1) / (t2 - t1)
}

// InterpolatedDiscountCurve interpolates log discount factors linearly
// between pillars and extrapolates with the last forward rate. The first
// pillar is at t=0 with value 1.
type InterpolatedDiscountCurve struct {
	lazy
	clock  Clock
	dc     dates.DayCounter
	times  []float64
	quotes []Quote
	ip     linear
}

// NewInterpolatedDiscountCurve builds a curve over pillar times and quotes.
// A leading t=0 pillar is added when times does not start at zero.
func NewInterpolatedDiscountCurve(clock Clock, dc dates.DayCounter, times []float64, quotes []Quote) (*InterpolatedDiscountCurve, error) {
	times, quotes, err := discountPillars(times, quotes)
	if err != nil {
		return nil, err
	}
	c := &InterpolatedDiscountCurve{
		clock:  clock,
		dc:     dc,
		times:  times,
		quotes: quotes,
		ip:     linear{right: extrapolateLinear},
	}
	c.compute = c.fit
	return c, nil
}

func discountPillars(times []float64, quotes []Quote) ([]float64, []Quote, error) {
	if len(times) != len(quotes) {
		return nil, nil, fmt.Errorf("discount curve: %d times but %d quotes", len(times), len(quotes))
	}
	if len(times) == 0 {
		return nil, nil, fmt.Errorf("discount curve: no pillars")
	}
	if times[0] != 0 {
		times = append([]float64{0}, times...)
		quotes = append([]Quote{ConstQuote(1)}, quotes...)
	}
	if !strictlyIncreasing(times) {
		return nil, nil, fmt.Errorf("discount curve: pillar times must be strictly increasing")
	}
	return times, quotes, nil
}

func (c *InterpolatedDiscountCurve) fit() {
	logs := make([]float64, len(c.quotes))
	for i, q := range c.quotes {
		logs[i] = math.Log(q.Value())
	}
	// times are validated at construction, Fit cannot fail
	_ = c.ip.fit(c.times, logs)
}

// Quotes returns the pillar quotes, t=0 first.
func (c *InterpolatedDiscountCurve) Quotes() []Quote { return c.quotes }

func (c *InterpolatedDiscountCurve) ReferenceDate() time.Time { return c.clock.ReferenceDate() }
func (c *InterpolatedDiscountCurve) DayCounter() dates.DayCounter { return c.dc }

func (c *InterpolatedDiscountCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1
	}
	c.ensure()
	return math.Exp(c.ip.at(t))
}

func (c *InterpolatedDiscountCurve) DiscountDate(d time.Time) float64 {
	return c.Discount(c.dc.YearFraction(c.ReferenceDate(), d))
}

// DirectDiscountCurve interpolates the same way as
// InterpolatedDiscountCurve but keeps no cache: every call reads the
// current quote values.
type DirectDiscountCurve struct {
	clock  Clock
	dc     dates.DayCounter
	times  []float64
	quotes []Quote
}

func NewDirectDiscountCurve(clock Clock, dc dates.DayCounter, times []float64, quotes []Quote) (*DirectDiscountCurve, error) {
	times, quotes, err := discountPillars(times, quotes)
	if err != nil {
		return nil, err
	}
	return &DirectDiscountCurve{clock: clock, dc: dc, times: times, quotes: quotes}, nil
}

func (c *DirectDiscountCurve) ReferenceDate() time.Time { return c.clock.ReferenceDate() }
func (c *DirectDiscountCurve) DayCounter() dates.DayCounter { return c.dc }

func (c *DirectDiscountCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1
	}
	n := len(c.times)
	if n == 1 {
		return c.quotes[0].Value()
	}
	i := sort.SearchFloat64s(c.times, t)
	if i >= n {
		i = n - 1
	}
	if i == 0 {
		i = 1
	}
	t0, t1 := c.times[i-1], c.times[i]
	l0, l1 := math.Log(c.quotes[i-1].Value()), math.Log(c.quotes[i].Value())
	return math.Exp(l0 + (l1-l0)*(t-t0)/(t1-t0))
}

func (c *DirectDiscountCurve) DiscountDate(d time.Time) float64 {
	return c.Discount(c.dc.YearFraction(c.ReferenceDate(), d))
}

// NewZeroCurve builds a fixed curve from continuously compounded zero rates.
func NewZeroCurve(clock Clock, dc dates.DayCounter, times, rates []float64) (*InterpolatedDiscountCurve, error) {
	if len(times) != len(rates) {
		return nil, fmt.Errorf("zero curve: %d times but %d rates", len(times), len(rates))
	}
	quotes := make([]Quote, len(times))
	for i := range times {
		quotes[i] = ConstQuote(math.Exp(-rates[i] * times[i]))
	}
	return NewInterpolatedDiscountCurve(clock, dc, times, quotes)
}

// NewFlatCurve builds a fixed curve with a single continuously compounded
// rate.
func NewFlatCurve(clock Clock, dc dates.DayCounter, rate float64) *InterpolatedDiscountCurve {
	c, _ := NewZeroCurve(clock, dc, []float64{0, 1}, []float64{rate, rate})
	return c
}

// PillarTimes converts tenors to year fractions from asof.
func PillarTimes(asof time.Time, dc dates.DayCounter, tenors []dates.Period) []float64 {
	out := make([]float64, len(tenors))
	for i, p := range tenors {
		out[i] = dc.YearFraction(asof, p.AddTo(asof))
	}
	return out
}
