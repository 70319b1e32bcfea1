package cube

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(n int) []time.Time {
	asof := dates.MustParseDate("2016-02-05")
	out := make([]time.Time, n)
	for i := range out {
		out[i] = asof.AddDate(i+1, 0, 0)
	}
	return out
}

func filled(t *testing.T, p Precision) Cube {
	t.Helper()
	ids := []string{"swap1", "swap2", "fxfwd", "bond"}
	c, err := New(dates.MustParseDate("2016-02-05"), ids, testGrid(3), 7, 2, p)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := range ids {
		for k := 0; k < 2; k++ {
			require.NoError(t, c.SetT0(rng.NormFloat64()*1e6, i, k))
			for j := 0; j < 3; j++ {
				for s := 0; s < 7; s++ {
					require.NoError(t, c.SetAt(rng.NormFloat64()*1e6, i, j, s, k))
				}
			}
		}
	}
	return c
}

func TestUnsupportedDepth(t *testing.T) {
	for _, depth := range []int{0, 3, -1} {
		_, err := New(time.Now(), []string{"a"}, testGrid(1), 1, depth, Double)
		var de *UnsupportedCubeDepthError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, depth, de.Depth)
	}
}

func TestCubeCoordinates(t *testing.T) {
	grid := testGrid(2)
	c, err := NewDense[float64](dates.MustParseDate("2016-02-05"), []string{"a", "b"}, grid, 3, 1)
	require.NoError(t, err)

	require.NoError(t, c.Set(1.5, "b", grid[1], 2, 0))
	v, err := c.Get("b", grid[1], 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	tests := []struct {
		name string
		err  error
	}{
		{"unknown id", c.Set(1, "zzz", grid[0], 0, 0)},
		{"unknown date", c.Set(1, "a", grid[0].AddDate(0, 0, 1), 0, 0)},
		{"sample out of range", c.Set(1, "a", grid[0], 3, 0)},
		{"depth out of range", c.Set(1, "a", grid[0], 0, 1)},
		{"negative index", c.SetAt(1, -1, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, ErrUnknownCoordinate)
		})
	}

	_, err = NewDense[float64](time.Now(), []string{"a", "a"}, grid, 1, 1)
	assert.Error(t, err, "duplicate ids")
	_, err = NewDense[float64](time.Now(), []string{"a"}, []time.Time{grid[1], grid[0]}, 1, 1)
	assert.Error(t, err, "dates out of order")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		prec Precision
		file string
		tol  float64
	}{
		{"double", Double, "cube.bin", 0},
		{"single", Single, "cube.bin", 1e-4},
		{"double gzip", Double, "cube.bin.gz", 0},
		{"single gzip", Single, "cube.bin.gz", 1e-4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := filled(t, tt.prec)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, Save(path, c))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, c.NumIDs(), got.NumIDs())
			assert.Equal(t, c.NumDates(), got.NumDates())
			assert.Equal(t, c.Samples(), got.Samples())
			assert.Equal(t, c.Depth(), got.Depth())
			assert.Equal(t, c.Precision(), got.Precision())
			assert.Equal(t, c.IDs(), got.IDs())
			assert.True(t, c.AsOf().Equal(got.AsOf()))
			require.NoError(t, CheckDimensions(got, c.IDs(), c.Dates(), c.Samples()))

			for k := 0; k < c.Depth(); k++ {
				for i := 0; i < c.NumIDs(); i++ {
					want, _ := c.T0(i, k)
					have, _ := got.T0(i, k)
					assertClose(t, want, have, tt.tol)
					for j := 0; j < c.NumDates(); j++ {
						for s := 0; s < c.Samples(); s++ {
							want, _ := c.GetAt(i, j, s, k)
							have, _ := got.GetAt(i, j, s, k)
							assertClose(t, want, have, tt.tol)
						}
					}
				}
			}
		})
	}
}

func assertClose(t *testing.T, want, have, tol float64) {
	t.Helper()
	if tol == 0 {
		assert.Equal(t, want, have)
		return
	}
	assert.LessOrEqual(t, math.Abs(want-have), tol*math.Max(1, math.Abs(want)))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOTACUBEATALL"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	c := filled(t, Double)
	good := filepath.Join(t.TempDir(), "cube.bin")
	require.NoError(t, Save(good, c))
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0644))
	_, err = Load(path)
	assert.Error(t, err, "truncated payload")
}

func TestLoadRejectsOversizedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.bin")
	fw, err := createFile(path)
	require.NoError(t, err)
	require.NoError(t, writeHeader(fw, cubeMagic, cubeHeader{
		Version:   formatVersion,
		Precision: Double,
		AsOf:      "2016-02-05",
		IDs:       []string{"a", "b"},
		Dates:     []string{"2017-02-05", "2018-02-05"},
		Samples:   math.MaxInt / 2,
		Depth:     2,
	}))
	require.NoError(t, fw.Close())

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceed")

	_, err = NewAggregationData(math.MaxInt/4, 4, nil)
	assert.Error(t, err)
}

func TestCheckDimensions(t *testing.T) {
	c := filled(t, Double)
	ids := c.IDs()
	grid := c.Dates()

	require.NoError(t, CheckDimensions(c, ids, grid, 7))

	var de *DimensionMismatchError
	require.ErrorAs(t, CheckDimensions(c, ids[:3], grid, 7), &de)
	assert.Equal(t, "ids", de.Dimension)
	require.ErrorAs(t, CheckDimensions(c, ids, grid[:2], 7), &de)
	assert.Equal(t, "dates", de.Dimension)
	require.ErrorAs(t, CheckDimensions(c, ids, grid, 8), &de)
	assert.Equal(t, "samples", de.Dimension)

	swapped := []string{ids[1], ids[0], ids[2], ids[3]}
	require.ErrorAs(t, CheckDimensions(c, swapped, grid, 7), &de)
	assert.Contains(t, de.Error(), "position 0")
}
