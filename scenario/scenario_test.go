package scenario

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleScenario(t *testing.T) {
	d := dates.MustParseDate("2016-02-05")
	s := NewSimpleScenario(d)
	k := NewKey(DiscountCurve, "EUR", 0)

	assert.False(t, s.Has(k))
	_, err := s.Get(k)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Add(k, 0.99))
	assert.True(t, s.Has(k))
	v, err := s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, 0.99, v)

	assert.Error(t, s.Add(k, 0.5), "keys are never overwritten")
	v, _ = s.Get(k)
	assert.Equal(t, 0.99, v)

	assert.Equal(t, 1.0, s.Numeraire())
	s.SetNumeraire(1.25)

	c := Clone(s, d.AddDate(1, 0, 0))
	assert.Equal(t, s.Keys(), c.Keys())
	assert.Equal(t, 1.25, c.Numeraire())
	assert.True(t, c.AsOf().After(s.AsOf()))
}

func TestSliceGenerator(t *testing.T) {
	d1 := dates.MustParseDate("2017-01-01")
	d2 := dates.MustParseDate("2018-01-01")
	g := NewSliceGenerator(NewSimpleScenario(d1), NewSimpleScenario(d2))

	s, err := g.Next(d1)
	require.NoError(t, err)
	assert.Equal(t, d1, s.AsOf())

	_, err = g.Next(d1)
	assert.Error(t, err, "date mismatch")

	require.NoError(t, g.Reset())
	_, err = g.Next(d1)
	require.NoError(t, err)
	_, err = g.Next(d2)
	require.NoError(t, err)
	_, err = g.Next(d2)
	assert.Error(t, err, "exhausted")
}

func TestFuncGeneratorCountsSteps(t *testing.T) {
	var seen []int
	g := NewFuncGenerator(func(d time.Time, step int) (Scenario, error) {
		seen = append(seen, step)
		return NewSimpleScenario(d), nil
	})
	d := dates.MustParseDate("2017-01-01")
	for i := 0; i < 3; i++ {
		_, err := g.Next(d)
		require.NoError(t, err)
	}
	require.NoError(t, g.Reset())
	_, err := g.Next(d)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0}, seen)
}

func knownScenarios(t *testing.T) []Scenario {
	t.Helper()
	keys := []Key{
		NewKey(DiscountCurve, "EUR", 0),
		NewKey(DiscountCurve, "EUR", 1),
		NewKey(FXSpot, "EURUSD", 0),
		NewKey(SwaptionVolatility, "EUR", 4),
	}
	vals := [][]float64{
		{0.9912345678901234, 0.97, 1.1, 0.0071},
		{0.98, 0.951, 1.0999999999999999, 0.0072},
		{1e-9, 0.93, 1.23456789, 123456.789},
	}
	out := make([]Scenario, len(vals))
	for i, row := range vals {
		s := NewSimpleScenario(dates.MustParseDate("2017-01-01").AddDate(i, 0, 0))
		for j, k := range keys {
			require.NoError(t, s.Add(k, row[j]))
		}
		s.SetNumeraire(1.0 + float64(i)/10)
		out[i] = s
	}
	return out
}

func TestWriterDumpsScenarios(t *testing.T) {
	src := knownScenarios(t)
	path := filepath.Join(t.TempDir(), "scenarios.csv")

	w, err := NewWriter(NewSliceGenerator(src...), path)
	require.NoError(t, err)

	for _, s := range src {
		got, err := w.Next(s.AsOf())
		require.NoError(t, err)
		assert.Same(t, s, got, "writer must pass scenarios through unchanged")
	}
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 4, "1 header + 3 data rows")

	header := strings.Split(lines[0], ",")
	assert.Equal(t, []string{"Date", "DiscountCurve/EUR/0", "DiscountCurve/EUR/1", "FXSpot/EURUSD/0", "SwaptionVolatility/EUR/4"}, header)

	for i, line := range lines[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 1+4)
		assert.Equal(t, dates.Format(src[i].AsOf()), fields[0])
		for j, k := range src[i].Keys() {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			require.NoError(t, err)
			want, _ := src[i].Get(k)
			assert.Equal(t, want, v, "value for %s must round trip exactly", k)
		}
	}
}

func TestWriterOptionsAndReset(t *testing.T) {
	src := knownScenarios(t)
	path := filepath.Join(t.TempDir(), "scenarios.txt")

	w, err := NewWriter(NewSliceGenerator(src...), path,
		WithSeparator(';'), WithHeader(false), WithNumeraire(true))
	require.NoError(t, err)

	_, err = w.Next(src[0].AsOf())
	require.NoError(t, err)
	_, err = w.Next(src[1].AsOf())
	require.NoError(t, err)

	require.NoError(t, w.Reset())
	_, err = w.Next(src[0].AsOf())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "reset truncates the dump")
	fields := strings.Split(lines[0], ";")
	require.Len(t, fields, 1+1+4)
	assert.Equal(t, "1", fields[1])
}

func TestWriterAppendKeepsRows(t *testing.T) {
	src := knownScenarios(t)
	path := filepath.Join(t.TempDir(), "scenarios.csv")

	w, err := NewWriter(NewSliceGenerator(src...), path)
	require.NoError(t, err)
	_, err = w.Next(src[0].AsOf())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = NewWriter(NewSliceGenerator(src...), path, WithAppend(true))
	require.NoError(t, err)
	_, err = w.Next(src[0].AsOf())
	require.NoError(t, err)
	require.NoError(t, w.Reset())
	_, err = w.Next(src[0].AsOf())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4, "one header and every row written")
	assert.Equal(t, 1, strings.Count(string(data), "Date,"))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, dates.Format(src[0].AsOf())+","))
	}

	rd, err := NewReader(path, ',')
	require.NoError(t, err)
	defer rd.Close()
	for i := 0; i < 3; i++ {
		_, err := rd.Next(src[0].AsOf())
		require.NoError(t, err)
	}
}

func TestReaderReplaysWriterOutput(t *testing.T) {
	src := knownScenarios(t)
	path := filepath.Join(t.TempDir(), "scenarios.csv")

	w, err := NewWriter(NewSliceGenerator(src...), path, WithNumeraire(true))
	require.NoError(t, err)
	for _, s := range src {
		_, err := w.Next(s.AsOf())
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	rd, err := NewReader(path, ',')
	require.NoError(t, err)
	defer rd.Close()
	assert.Equal(t, src[0].Keys(), rd.Keys())

	for pass := 0; pass < 2; pass++ {
		for _, want := range src {
			got, err := rd.Next(want.AsOf())
			require.NoError(t, err)
			assert.Equal(t, want.Numeraire(), got.Numeraire())
			for _, k := range want.Keys() {
				wv, _ := want.Get(k)
				gv, err := got.Get(k)
				require.NoError(t, err)
				assert.Equal(t, wv, gv)
			}
		}
		_, err = rd.Next(src[0].AsOf())
		assert.Error(t, err, "exhausted")
		require.NoError(t, rd.Reset())
	}

	_, err = rd.Next(src[1].AsOf())
	assert.Error(t, err, "date mismatch")
}

func TestReaderRejectsHeaderlessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("2017-01-01,1,2\n"), 0644))
	_, err := NewReader(path, ',')
	assert.Error(t, err)
}
