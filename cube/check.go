package cube

import (
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// DimensionMismatchError reports a cube that does not fit the portfolio,
// date grid or sample count it is checked against.
type DimensionMismatchError struct {
	Dimension string
	Cube      int
	Expected  int
	Detail    string
}

func (e *DimensionMismatchError) Error() string {
	msg := fmt.Sprintf("cube %s mismatch: cube has %d, expected %d", e.Dimension, e.Cube, e.Expected)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// CheckDimensions verifies that c was built for ids, grid and samples. Ids
// and dates must also match in order.
func CheckDimensions(c Cube, ids []string, grid []time.Time, samples int) error {
	if c.NumIDs() != len(ids) {
		return &DimensionMismatchError{Dimension: "ids", Cube: c.NumIDs(), Expected: len(ids)}
	}
	if c.NumDates() != len(grid) {
		return &DimensionMismatchError{Dimension: "dates", Cube: c.NumDates(), Expected: len(grid)}
	}
	if c.Samples() != samples {
		return &DimensionMismatchError{Dimension: "samples", Cube: c.Samples(), Expected: samples}
	}
	for i, id := range c.IDs() {
		if id != ids[i] {
			return &DimensionMismatchError{Dimension: "ids", Cube: len(ids), Expected: len(ids),
				Detail: fmt.Sprintf("position %d holds %q, expected %q", i, id, ids[i])}
		}
	}
	for i, d := range c.Dates() {
		if !d.Equal(grid[i]) {
			return &DimensionMismatchError{Dimension: "dates", Cube: len(grid), Expected: len(grid),
				Detail: fmt.Sprintf("position %d holds %s, expected %s", i, dates.Format(d), dates.Format(grid[i]))}
		}
	}
	return nil
}

// CheckAggregation verifies that a matches the cube's date and sample
// dimensions.
func CheckAggregation(c Cube, a *AggregationData) error {
	if a.NumDates() != c.NumDates() {
		return &DimensionMismatchError{Dimension: "aggregation dates", Cube: a.NumDates(), Expected: c.NumDates()}
	}
	if a.Samples() != c.Samples() {
		return &DimensionMismatchError{Dimension: "aggregation samples", Cube: a.Samples(), Expected: c.Samples()}
	}
	return nil
}
