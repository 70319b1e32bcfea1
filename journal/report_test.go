package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOrg(t *testing.T) {
	rec := sampleRun("01HRUN", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	errs := []ErrorRecord{{
		RunID:      "01HRUN",
		TradeID:    "FLT_EUR",
		Calculator: "npv",
		Date:       time.Date(2018, 2, 5, 0, 0, 0, 0, time.UTC),
		Sample:     12,
		Message:    "missing fixing",
	}}

	var buf bytes.Buffer
	require.NoError(t, rec.WriteOrg(&buf, errs))
	out := buf.String()

	assert.Contains(t, out, "* VALUATION: test 2016-02-05")
	assert.Contains(t, out, ":RUN_ID:        01HRUN")
	assert.Contains(t, out, ":CELLS:         6000")
	assert.Contains(t, out, "| Pricing | 900.0 |")
	assert.Contains(t, out, "** Pricing Errors (1)")
	assert.Contains(t, out, "| FLT_EUR | npv | 2018-02-05 | 12 | missing fixing |")
}

func TestWriteOrgFileWithoutErrors(t *testing.T) {
	rec := sampleRun("01HRUN", time.Time{})
	rec.Name = ""
	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, rec.WriteOrgFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "(name?)")
	assert.NotContains(t, string(data), "Pricing Errors")
}
