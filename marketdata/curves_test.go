package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movingClock struct{ d time.Time }

func (c *movingClock) ReferenceDate() time.Time { return c.d }

func TestInterpolatedDiscountCurve(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	c, err := NewZeroCurve(clock, dates.Actual365Fixed, []float64{1, 2, 5}, []float64{0.01, 0.02, 0.03})
	require.NoError(t, err)

	assert.Equal(t, 1.0, c.Discount(0))
	assert.InDelta(t, math.Exp(-0.01), c.Discount(1), 1e-12)
	assert.InDelta(t, math.Exp(-0.04), c.Discount(2), 1e-12)

	// log-linear between pillars
	want := math.Exp(-(0.01 + 0.04) / 2)
	assert.InDelta(t, want, c.Discount(1.5), 1e-12)

	// flat forward beyond the last pillar
	fwd := (0.15 - 0.04) / 3
	assert.InDelta(t, math.Exp(-0.15-fwd*5), c.Discount(10), 1e-12)
	assert.InDelta(t, (math.Exp(fwd*5)-1)/5, ForwardRate(c, 5, 10), 1e-12)
	assert.InDelta(t, 0.02, ZeroRate(c, 2), 1e-12)
}

func TestDiscountCurveFollowsQuotes(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	for _, mode := range []NotifyMode{NotifyEachWrite, NotifyBatch, NotifyNone} {
		b := NewQuoteBank(mode)
		k := scenario.NewKey(scenario.DiscountCurve, "EUR", 0)
		q, err := b.Register(k, 0.99)
		require.NoError(t, err)

		cached, err := NewInterpolatedDiscountCurve(FixedClock(asof), dates.Actual365Fixed, []float64{1}, []Quote{q})
		require.NoError(t, err)
		b.Observe(cached, q)
		direct, err := NewDirectDiscountCurve(FixedClock(asof), dates.Actual365Fixed, []float64{1}, []Quote{q})
		require.NoError(t, err)

		assert.InDelta(t, 0.99, cached.Discount(1), 1e-12)

		b.BeginBatch()
		require.NoError(t, b.Set(k, 0.95))
		b.EndBatch()

		assert.InDelta(t, 0.95, cached.Discount(1), 1e-12, "mode %d", mode)
		assert.InDelta(t, 0.95, direct.Discount(1), 1e-12)
		assert.InDelta(t, cached.Discount(0.5), direct.Discount(0.5), 1e-12)
		assert.InDelta(t, cached.Discount(3), direct.Discount(3), 1e-12)
	}
}

func TestDiscountCurveRejectsBadPillars(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	_, err := NewInterpolatedDiscountCurve(clock, dates.Actual365Fixed, []float64{1, 1}, []Quote{ConstQuote(1), ConstQuote(1)})
	assert.Error(t, err)
	_, err = NewInterpolatedDiscountCurve(clock, dates.Actual365Fixed, []float64{1}, nil)
	assert.Error(t, err)
}

func TestFloatingReferenceDate(t *testing.T) {
	clock := &movingClock{d: dates.MustParseDate("2016-02-05")}
	c := NewFlatCurve(clock, dates.Actual365Fixed, 0.02)
	pay := dates.MustParseDate("2018-02-05")

	before := c.DiscountDate(pay)
	clock.d = dates.MustParseDate("2017-02-05")
	after := c.DiscountDate(pay)
	assert.Greater(t, after, before, "discounting over a shorter period")
}

func TestSurvivalCurve(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	c := NewFlatHazardCurve(clock, dates.Actual365Fixed, 0.01)
	assert.InDelta(t, math.Exp(-0.05), c.SurvivalProbability(5), 1e-12)
	assert.InDelta(t, 0.01, HazardRate(c, 7), 1e-12)
}

func TestIborIndexFixing(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	curve := NewFlatCurve(FixedClock(asof), dates.Actual365Fixed, 0.02)
	hist := FixingHistory{}
	hist.Add("EUR-EURIBOR-6M", asof.AddDate(0, 0, -1), 0.005)
	ix := NewIborIndex("EUR-EURIBOR-6M", "EUR", dates.Period{N: 6, Unit: dates.Months}, dates.Actual360, curve, hist)

	v, err := ix.Fixing(asof.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 0.005, v)

	_, err = ix.Fixing(asof.AddDate(0, 0, -2))
	assert.Error(t, err)

	v, err = ix.Fixing(asof.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.02, v, 0.002)
}
