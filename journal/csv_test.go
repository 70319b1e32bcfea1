package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, runs, 1)
	assert.Equal(t, runHeader, runs[0])

	errs := readCSV(t, filepath.Join(dir, "errors.csv"))
	require.Len(t, errs, 1)
	assert.Equal(t, errorHeader, errs[0])
}

func TestCSVJournalRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	rec := sampleRun("R1", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, j.RecordRun(rec))
	require.NoError(t, j.RecordError(ErrorRecord{
		RunID:      "R1",
		TradeID:    "T1",
		Calculator: "npv",
		Date:       time.Date(2017, 2, 6, 0, 0, 0, 0, time.UTC),
		Sample:     7,
		Message:    "boom",
	}))
	require.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, runs, 2)
	row := runs[1]
	assert.Equal(t, "R1", row[0])
	assert.Equal(t, "2024-01-02T03:04:05Z", row[1])
	assert.Equal(t, "2016-02-05", row[2])
	assert.Equal(t, "100", row[7])
	assert.Equal(t, "900.000", row[16])
	assert.Equal(t, StatusCompleted, row[19])

	errs := readCSV(t, filepath.Join(dir, "errors.csv"))
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"R1", "T1", "npv", "2017-02-06", "7", "boom"}, errs[1])
}

func TestCSVJournalAppends(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, id := range []string{"R1", "R2"} {
		j, err := NewCSV(dir)
		require.NoError(t, err)
		require.NoError(t, j.RecordRun(sampleRun(id, time.Now())))
		require.NoError(t, j.Close())
	}

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, runs, 3, "one header and two runs")
	assert.Equal(t, "R1", runs[1][0])
	assert.Equal(t, "R2", runs[2][0])
}
