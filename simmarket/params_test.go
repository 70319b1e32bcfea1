package simmarket

import (
	"testing"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersValidate(t *testing.T) {
	require.NoError(t, (&Parameters{}).Validate())
	require.NoError(t, testParams().Validate())

	tests := []struct {
		name   string
		modify func(p *Parameters)
		want   string
	}{
		{"no base", func(p *Parameters) { p.BaseCurrency = "" }, "base_currency is required"},
		{"base not listed", func(p *Parameters) { p.BaseCurrency = "CHF" }, "must be one of currencies"},
		{"bad currency", func(p *Parameters) { p.Currencies = append(p.Currencies, "eu") }, "3 letter"},
		{"no discount tenors", func(p *Parameters) { p.DiscountCurves.Tenors = nil }, "discount_curves.tenors is required"},
		{"bad tenor", func(p *Parameters) { p.Indices.Tenors = []string{"6X"} }, "indices"},
		{"bad day counter", func(p *Parameters) { p.DefaultCurves.DayCounter = "bogus" }, "default_curves"},
		{"swaption terms", func(p *Parameters) { p.SwaptionVols.Terms = nil }, "swaption_vols.terms is required"},
		{"fx vol expiries", func(p *Parameters) { p.FXVols.Expiries = nil }, "fx_vols.expiries is required"},
		{"fx vol pair", func(p *Parameters) { p.FXVols.Names = []string{"USD"} }, "currency pair"},
		{"decay mode", func(p *Parameters) { p.CapFloorVols.DecayMode = "Linear" }, "capfloor_vols"},
		{"aggregation index", func(p *Parameters) { p.Aggregation.Indices = []string{"USD-LIBOR-3M"} }, "not a simulated index"},
		{"aggregation currency", func(p *Parameters) { p.Aggregation.Currencies = []string{"USD", "JPY"} }, "aggregation currency JPY is not a simulated currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParameterDefaults(t *testing.T) {
	p := testParams()
	assert.Equal(t, []string{"EUR", "USD", "GBP"}, p.DiscountNames())
	assert.Equal(t, []string{"USDEUR", "GBPEUR"}, p.FXPairs())
	assert.Equal(t, []string{"SP5"}, p.EquityVolNames())

	mode, err := p.SwaptionVols.Decay()
	require.NoError(t, err)
	assert.Equal(t, marketdata.ForwardVariance, mode)

	p.Indices.TenorOverrides = map[string][]string{"EUR-EURIBOR-6M": {"1Y"}}
	ps, err := p.Indices.TenorsFor("EUR-EURIBOR-6M")
	require.NoError(t, err)
	assert.Equal(t, dates.MustParsePeriods("1Y"), ps)

	assert.Equal(t, []cube.Series{cube.Numeraire, cube.IndexFixing("EUR-EURIBOR-6M"), cube.FXSpot("USD"), cube.FXSpot("GBP")},
		AggregationSeries(p))
}

func TestParseObservationMode(t *testing.T) {
	for in, want := range map[string]ObservationMode{
		"":           Disable,
		"disable":    Disable,
		"Defer":      Defer,
		"UNREGISTER": Unregister,
		"accurate":   Accurate,
	} {
		got, err := ParseObservationMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseObservationMode("sometimes")
	assert.Error(t, err)

	var m ObservationMode
	require.NoError(t, m.UnmarshalText([]byte("Defer")))
	assert.Equal(t, Defer, m)
	assert.Equal(t, marketdata.NotifyBatch, m.notify())
	assert.Equal(t, marketdata.NotifyNone, Unregister.notify())
	assert.True(t, Unregister.directCurves())
}
