package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"1D", Period{1, Days}, false},
		{"2w", Period{2, Weeks}, false},
		{" 3M ", Period{3, Months}, false},
		{"10Y", Period{10, Years}, false},
		{"Y", Period{}, true},
		{"3X", Period{}, true},
		{"aY", Period{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	d := MustParseDate("2024-01-31")
	assert.Equal(t, "2024-02-29", Format(AddMonths(d, 1)))
	assert.Equal(t, "2025-01-31", Format(Period{1, Years}.AddTo(d)))
	assert.Equal(t, "2024-02-14", Format(Period{2, Weeks}.AddTo(d)))
}

func TestYearFraction(t *testing.T) {
	start := MustParseDate("2024-01-01")
	end := MustParseDate("2025-01-01")

	assert.InDelta(t, 366.0/365.0, Actual365Fixed.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 366.0/360.0, Actual360.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 1.0, ActualActual.YearFraction(start, end), 1e-12)
	assert.InDelta(t, 1.0, Thirty360.YearFraction(start, end), 1e-12)
	assert.InDelta(t, -1.0, ActualActual.YearFraction(end, start), 1e-12)
}

func TestParseDayCounter(t *testing.T) {
	dc, err := ParseDayCounter("ACT/360")
	require.NoError(t, err)
	assert.Equal(t, Actual360, dc)

	dc, err = ParseDayCounter("")
	require.NoError(t, err)
	assert.Equal(t, Actual365Fixed, dc)

	_, err = ParseDayCounter("BUS/252")
	assert.Error(t, err)
}

func TestParseGrid(t *testing.T) {
	asof := MustParseDate("2016-02-05")

	g, err := ParseGrid(asof, "5,1Y")
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())
	assert.Equal(t, "2017-02-05", Format(g.Dates[0]))
	assert.Equal(t, "2021-02-05", Format(g.Dates[4]))

	g, err = ParseGrid(asof, "3M,6M,1Y")
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())
	assert.Equal(t, "2016-05-05", Format(g.Dates[0]))

	i, ok := g.Index(MustParseDate("2016-08-05"))
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = g.Index(MustParseDate("2016-08-06"))
	assert.False(t, ok)

	_, err = ParseGrid(asof, "1Y,6M")
	assert.Error(t, err)
	_, err = ParseGrid(asof, "0,1Y")
	assert.Error(t, err)
	_, err = ParseGrid(asof, "")
	assert.Error(t, err)
}

func TestGridFromDates(t *testing.T) {
	asof := MustParseDate("2020-01-01")
	_, err := GridFromDates(asof, []time.Time{asof})
	assert.Error(t, err)

	g, err := GridFromDates(asof, []time.Time{MustParseDate("2020-06-01"), MustParseDate("2021-01-01")})
	require.NoError(t, err)
	times := g.Times(Actual365Fixed)
	assert.InDelta(t, 152.0/365.0, times[0], 1e-12)
}
