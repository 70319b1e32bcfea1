package scenario

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/simcube/dates"
)

var (
	dcEUR0 = NewKey(DiscountCurve, "EUR", 0)
	dcEUR1 = NewKey(DiscountCurve, "EUR", 1)
	fxUSD  = NewKey(FXSpot, "USDEUR", 0)
	eqSP5  = NewKey(EquitySpot, "SP5", 0)
)

func shiftBase(t *testing.T) *SimpleScenario {
	t.Helper()
	s := NewSimpleScenario(dates.MustParseDate("2016-02-05"))
	require.NoError(t, s.Add(eqSP5, 2000))
	require.NoError(t, s.Add(fxUSD, 0.9))
	require.NoError(t, s.Add(dcEUR1, math.Exp(-0.02*5)))
	require.NoError(t, s.Add(dcEUR0, math.Exp(-0.01)))
	s.SetNumeraire(1.5)
	return s
}

func curveTimes(k Key) (float64, bool) {
	switch k {
	case dcEUR0:
		return 1, true
	case dcEUR1:
		return 5, true
	}
	return 0, false
}

func TestShiftMove(t *testing.T) {
	abs := Shift{Type: Absolute, Size: 0.01}
	rel := Shift{Type: Relative, Size: 0.01}
	assert.InDelta(t, 1.11, abs.move(1.1, 1, 0), 1e-12)
	assert.InDelta(t, 1.09, abs.move(1.1, -1, 0), 1e-12)
	assert.InDelta(t, 101.0, rel.move(100, 1, 0), 1e-12)
	assert.InDelta(t, 99.0, rel.move(100, -1, 0), 1e-12)

	df := math.Exp(-0.02 * 2)
	assert.InDelta(t, math.Exp(-0.03*2), abs.move(df, 1, 2), 1e-15, "zero rate moves by the absolute size")
	assert.InDelta(t, math.Exp(-0.0202*2), rel.move(df, 1, 2), 1e-15, "zero rate scales by the relative size")

	st, err := ParseShiftType("relative")
	require.NoError(t, err)
	assert.Equal(t, Relative, st)
	_, err = ParseShiftType("Parallel")
	assert.Error(t, err)
}

func TestSensitivityGenerator(t *testing.T) {
	base := shiftBase(t)
	g, err := NewSensitivityGenerator(base, SensitivityConfig{
		Shifts: map[string]Shift{
			"DiscountCurve": {Type: Absolute, Size: 0.0001},
			"FXSpot":        {Type: Relative, Size: 0.01},
		},
		CrossGamma: [][]string{{"DiscountCurve", "FXSpot"}},
	}, curveTimes)
	require.NoError(t, err)

	// base, up and down for three keys, two cross pairs
	require.Equal(t, 9, g.Len())
	descs := g.Descriptions()
	assert.Equal(t, "Base", descs[0].String())
	assert.Equal(t, "Up:DiscountCurve/EUR/0", descs[1].String())
	assert.Equal(t, "Down:DiscountCurve/EUR/0", descs[2].String())
	assert.Equal(t, Description{Type: Up, Key1: fxUSD}, descs[5])
	assert.Equal(t, "Cross:DiscountCurve/EUR/0:FXSpot/USDEUR/0", descs[7].String())
	assert.Equal(t, "Cross:DiscountCurve/EUR/1:FXSpot/USDEUR/0", descs[8].String())
	assert.Len(t, g.Shifts(), 3)
	assert.NotContains(t, g.Shifts(), eqSP5)

	d := dates.MustParseDate("2016-02-05")
	got := make([]Scenario, g.Len())
	for i := range got {
		got[i], err = g.Next(d)
		require.NoError(t, err)
		assert.Equal(t, 1.5, got[i].Numeraire())
		assert.Len(t, got[i].Keys(), 4)
	}
	_, err = g.Next(d)
	assert.Error(t, err, "exhausted")

	v, _ := got[0].Get(dcEUR0)
	assert.Equal(t, math.Exp(-0.01), v)
	v, _ = got[1].Get(dcEUR0)
	assert.InDelta(t, math.Exp(-0.0101), v, 1e-15)
	v, _ = got[1].Get(dcEUR1)
	assert.Equal(t, math.Exp(-0.1), v, "only the bumped key moves")
	v, _ = got[6].Get(fxUSD)
	assert.InDelta(t, 0.891, v, 1e-12)
	v, _ = got[8].Get(fxUSD)
	assert.InDelta(t, 0.909, v, 1e-12)
	v, _ = got[8].Get(dcEUR1)
	assert.InDelta(t, math.Exp(-0.0201*5), v, 1e-15)

	v, _ = base.Get(dcEUR0)
	assert.Equal(t, math.Exp(-0.01), v, "base scenario is not touched")

	require.NoError(t, g.Reset())
	again, err := g.Next(d)
	require.NoError(t, err)
	assert.Equal(t, got[0], again)
}

func TestSensitivityGeneratorRejectsConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SensitivityConfig
	}{
		{"unknown type", SensitivityConfig{Shifts: map[string]Shift{"Curve": {Size: 0.1}}}},
		{"zero size", SensitivityConfig{Shifts: map[string]Shift{"FXSpot": {}}}},
		{"cross without shift", SensitivityConfig{
			Shifts:     map[string]Shift{"FXSpot": {Size: 0.1}},
			CrossGamma: [][]string{{"FXSpot", "EquitySpot"}},
		}},
		{"cross not a pair", SensitivityConfig{
			Shifts:     map[string]Shift{"FXSpot": {Size: 0.1}},
			CrossGamma: [][]string{{"FXSpot"}},
		}},
		{"nothing shifted", SensitivityConfig{Shifts: map[string]Shift{"SwaptionVolatility": {Size: 0.1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSensitivityGenerator(shiftBase(t), tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestStressGenerator(t *testing.T) {
	base := shiftBase(t)
	g, err := NewStressGenerator(base, []StressTest{
		{Label: "parallel", Shifts: []StressShift{{Factor: "DiscountCurve", Type: Absolute, Size: 0.01}}},
		{Label: "fx", Shifts: []StressShift{
			{Factor: "FXSpot/USDEUR", Type: Relative, Size: -0.1},
			{Factor: "FXSpot/USDEUR/0", Type: Absolute, Size: 0.01},
		}},
		{Label: "steepener", Shifts: []StressShift{{Factor: "DiscountCurve/EUR", Type: Absolute, Sizes: []float64{-0.001}}}},
	}, curveTimes)
	require.NoError(t, err)
	require.Equal(t, 4, g.Len())
	assert.Equal(t, "Stress:fx", g.Descriptions()[2].String())
	assert.Empty(t, g.Shifts())

	d := dates.MustParseDate("2016-02-05")
	got := make([]Scenario, 4)
	for i := range got {
		got[i], err = g.Next(d)
		require.NoError(t, err)
	}
	v, _ := got[1].Get(dcEUR1)
	assert.InDelta(t, math.Exp(-0.03*5), v, 1e-15)
	v, _ = got[1].Get(fxUSD)
	assert.Equal(t, 0.9, v)
	v, _ = got[2].Get(fxUSD)
	assert.InDelta(t, 0.9*0.9+0.01, v, 1e-12, "shifts on one key compound")
	v, _ = got[3].Get(dcEUR0)
	assert.InDelta(t, math.Exp(-0.009), v, 1e-15)
	v, _ = got[3].Get(dcEUR1)
	assert.InDelta(t, math.Exp(-0.019*5), v, 1e-15, "last size carries on")
}

func TestStressGeneratorRejectsConfig(t *testing.T) {
	one := func(f string) []StressShift { return []StressShift{{Factor: f, Size: 0.1}} }
	tests := []struct {
		name  string
		tests []StressTest
	}{
		{"none", nil},
		{"no label", []StressTest{{Shifts: one("FXSpot")}}},
		{"duplicate", []StressTest{{Label: "a", Shifts: one("FXSpot")}, {Label: "a", Shifts: one("FXSpot")}}},
		{"no shifts", []StressTest{{Label: "a"}}},
		{"bad factor", []StressTest{{Label: "a", Shifts: one("Curve/EUR")}}},
		{"no match", []StressTest{{Label: "a", Shifts: one("DiscountCurve/USD")}}},
		{"sizes on a key", []StressTest{{Label: "a", Shifts: []StressShift{{Factor: "DiscountCurve/EUR/0", Sizes: []float64{0.1}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStressGenerator(shiftBase(t), tt.tests, nil)
			assert.Error(t, err)
		})
	}
}
