package cube

import (
	"path/filepath"
	"testing"

	"github.com/rustyeddy/simcube/dates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationCursor(t *testing.T) {
	a, err := NewAggregationData(2, 3, []Series{FXSpot("USD"), Numeraire, IndexFixing("EUR-EURIBOR-6M")})
	require.NoError(t, err)
	assert.Equal(t, []Series{Numeraire, FXSpot("USD"), IndexFixing("EUR-EURIBOR-6M")}, a.Series())

	n := 0.0
	for d := 0; d < 2; d++ {
		for s := 0; s < 3; s++ {
			dd, ss := a.Cursor()
			require.Equal(t, d, dd)
			require.Equal(t, s, ss)
			require.NoError(t, a.SetCurrent(Numeraire, n))
			n++
			a.Next()
		}
	}

	v, err := a.Get(1, 0, Numeraire)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = a.Get(0, 0, FXSpot("GBP"))
	assert.ErrorIs(t, err, ErrUnknownCoordinate)
	assert.ErrorIs(t, a.SetCurrent(Numeraire, 1), ErrUnknownCoordinate, "cursor past the end")

	a.ResetCursor()
	assert.NoError(t, a.SetCurrent(Numeraire, 1))

	_, err = NewAggregationData(1, 1, []Series{FXSpot("USD"), FXSpot("USD")})
	assert.Error(t, err)
}

func TestAggregationRoundTrip(t *testing.T) {
	a, err := NewAggregationData(3, 4, []Series{IndexFixing("EUR-EURIBOR-6M"), FXSpot("USD")})
	require.NoError(t, err)
	for i := range a.data {
		a.data[i] = float64(i) / 7
	}

	for _, name := range []string{"asd.bin", "asd.bin.gz"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveAggregation(path, a))
		got, err := LoadAggregation(path)
		require.NoError(t, err)
		assert.Equal(t, a.Series(), got.Series())
		assert.Equal(t, a.data, got.data)
	}
}

func TestParseSeries(t *testing.T) {
	for _, s := range []Series{Numeraire, FXSpot("USD"), IndexFixing("EUR-EURIBOR-6M")} {
		got, err := ParseSeries(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseSeries("Bogus:X")
	assert.Error(t, err)
}

func TestProfile(t *testing.T) {
	grid := testGrid(1)
	c, err := New(dates.MustParseDate("2016-02-05"), []string{"a", "b"}, grid, 4, 1, Double)
	require.NoError(t, err)
	// sample totals: -2, 0, 2, 4
	for s := 0; s < 4; s++ {
		require.NoError(t, c.SetAt(float64(s)-1, 0, 0, s, 0))
		require.NoError(t, c.SetAt(float64(s)-1, 1, 0, s, 0))
	}

	p, err := Profile(c, nil, nil, 0, 0.95)
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.InDelta(t, 1.0, p[0].Mean, 1e-12)
	assert.InDelta(t, 1.5, p[0].EPE, 1e-12)
	assert.InDelta(t, -0.5, p[0].ENE, 1e-12)
	assert.Equal(t, 4.0, p[0].PFE)

	a, err := NewAggregationData(1, 4, nil)
	require.NoError(t, err)
	for s := 0; s < 4; s++ {
		require.NoError(t, a.Set(2, 0, s, Numeraire))
	}
	p, err = Profile(c, a, []string{"a"}, 0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p[0].Mean, 1e-12)

	_, err = Profile(c, nil, nil, 1, 0.95)
	assert.Error(t, err)
}
