package marketdata

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackVarianceCurve(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	c, err := NewBlackVarianceCurve(clock, dates.Actual365Fixed, []float64{1, 2}, []Quote{ConstQuote(0.2), ConstQuote(0.1)})
	require.NoError(t, err)

	assert.InDelta(t, 0.04, c.BlackVariance(1, 0), 1e-12)
	assert.InDelta(t, 0.02, c.BlackVariance(2, 0), 1e-12)
	// linear in variance between pillars
	assert.InDelta(t, 0.03, c.BlackVariance(1.5, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(0.03/1.5), c.BlackVol(1.5, 0), 1e-12)
	// last vol held beyond the last pillar
	assert.InDelta(t, 0.1, c.BlackVol(5, 0), 1e-12)
	assert.InDelta(t, 0.2, c.BlackVol(0.5, 0), 1e-12)
}

func TestDynamicBlackVolDecay(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	src, err := NewBlackVarianceCurve(FixedClock(asof), dates.Actual365Fixed, []float64{1, 2, 3}, []Quote{ConstQuote(0.2), ConstQuote(0.25), ConstQuote(0.3)})
	require.NoError(t, err)

	clock := &movingClock{d: asof}
	constant := NewDynamicBlackVol(src, clock, asof, ConstantVariance)
	forward := NewDynamicBlackVol(src, clock, asof, ForwardVariance)

	// on the as-of date both agree with the source
	assert.InDelta(t, src.BlackVol(1, 0), constant.BlackVol(1, 0), 1e-12)
	assert.InDelta(t, src.BlackVol(1, 0), forward.BlackVol(1, 0), 1e-12)

	clock.d = asof.AddDate(0, 0, 365)
	assert.InDelta(t, src.BlackVol(1, 0), constant.BlackVol(1, 0), 1e-12)

	want := src.BlackVariance(2, 0) - src.BlackVariance(1, 0)
	assert.InDelta(t, want, forward.BlackVariance(1, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(want), forward.BlackVol(1, 0), 1e-12)
}

func TestInvertedBlackVol(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	src := &strikeVol{clock: FixedClock(asof)}
	inv := NewInvertedBlackVol(src)
	assert.Equal(t, src.BlackVol(1, 0.8), inv.BlackVol(1, 1.25))
	assert.Equal(t, src.BlackVol(1, 0), inv.BlackVol(1, 0))
}

// strikeVol has vol equal to strike so strike inversion is visible.
type strikeVol struct{ clock Clock }

func (s *strikeVol) ReferenceDate() time.Time          { return s.clock.ReferenceDate() }
func (s *strikeVol) DayCounter() dates.DayCounter      { return dates.Actual365Fixed }
func (s *strikeVol) BlackVol(_, k float64) float64     { return k }
func (s *strikeVol) BlackVariance(t, k float64) float64 { return k * k * t }

func TestSwaptionVolMatrix(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	quotes := []Quote{
		ConstQuote(0.10), ConstQuote(0.20),
		ConstQuote(0.30), ConstQuote(0.40),
	}
	m, err := NewSwaptionVolMatrix(clock, dates.Actual365Fixed, ShiftedLognormal, []float64{1, 2}, []float64{5, 10}, quotes, []float64{0.01})
	require.NoError(t, err)

	assert.InDelta(t, 0.10, m.Volatility(1, 5, 0), 1e-12)
	assert.InDelta(t, 0.40, m.Volatility(2, 10, 0), 1e-12)
	assert.InDelta(t, 0.25, m.Volatility(1.5, 7.5, 0), 1e-12)
	assert.InDelta(t, 0.10, m.Volatility(0.1, 1, 0), 1e-12, "flat extrapolation")
	assert.InDelta(t, 0.40, m.Volatility(30, 30, 0), 1e-12, "flat extrapolation")
	assert.InDelta(t, 0.01, m.Shift(1.5, 7), 1e-12)

	_, err = NewSwaptionVolMatrix(clock, dates.Actual365Fixed, Normal, []float64{1, 2}, []float64{5}, quotes, nil)
	assert.Error(t, err)
}

func TestDynamicSwaptionVolForwardVariance(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	quotes := []Quote{ConstQuote(0.01), ConstQuote(0.02)}
	m, err := NewSwaptionVolMatrix(FixedClock(asof), dates.Actual365Fixed, Normal, []float64{1, 3}, []float64{10}, quotes, nil)
	require.NoError(t, err)

	clock := &movingClock{d: asof.AddDate(0, 0, 365)}
	d := NewDynamicSwaptionVol(m, clock, asof, ForwardVariance)
	want := m.BlackVariance(3, 10, 0) - m.BlackVariance(1, 10, 0)
	assert.InDelta(t, math.Sqrt(want/2), d.Volatility(2, 10, 0), 1e-12)
	assert.Equal(t, Normal, d.VolType())
}

func TestOptionletSurface(t *testing.T) {
	clock := FixedClock(dates.MustParseDate("2016-02-05"))
	s, err := NewOptionletSurface(clock, dates.Actual365Fixed, Normal, 0, []float64{1, 2}, []float64{0.01, 0.03},
		[]Quote{ConstQuote(0.005), ConstQuote(0.007), ConstQuote(0.006), ConstQuote(0.008)})
	require.NoError(t, err)
	assert.InDelta(t, 0.0065, s.Volatility(1.5, 0.02), 1e-12)

	d := NewDynamicOptionletVol(s, clock, clock.ReferenceDate(), ConstantVariance)
	assert.InDelta(t, s.Volatility(1.5, 0.02), d.Volatility(1.5, 0.02), 1e-12)
}

func TestParseDecayMode(t *testing.T) {
	m, err := ParseDecayMode("ForwardVariance")
	require.NoError(t, err)
	assert.Equal(t, ForwardVariance, m)
	m, err = ParseDecayMode("ConstantVariance")
	require.NoError(t, err)
	assert.Equal(t, ConstantVariance, m)
	_, err = ParseDecayMode("NoDecay")
	assert.Error(t, err)
}

func TestForwardScaledConverter(t *testing.T) {
	asof := dates.MustParseDate("2016-02-05")
	curve := NewFlatCurve(FixedClock(asof), dates.Actual365Fixed, 0.03)
	conv := NewForwardScaledConverter(func(string) (YieldCurve, error) { return curve, nil })

	m, err := NewSwaptionVolMatrix(FixedClock(asof), dates.Actual365Fixed, ShiftedLognormal, []float64{1}, []float64{5}, []Quote{ConstQuote(0.2)}, []float64{0.01})
	require.NoError(t, err)
	n, err := conv.ToNormal("EUR", m)
	require.NoError(t, err)

	f := ForwardSwapRate(curve, 1, 5)
	assert.InDelta(t, math.Exp(0.03)-1, f, 1e-9, "annual par rate on a flat continuous curve")
	assert.Equal(t, Normal, n.VolType())
	assert.InDelta(t, 0.2*(f+0.01), n.Volatility(1, 5, 0), 1e-12)

	same, err := conv.ToNormal("EUR", n)
	require.NoError(t, err)
	assert.Same(t, n, same)
}
