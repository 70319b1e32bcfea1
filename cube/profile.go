package cube

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ProfilePoint summarises the sample distribution of one date.
type ProfilePoint struct {
	Date   time.Time
	Mean   float64
	StdDev float64
	EPE    float64 // mean of positive parts
	ENE    float64 // mean of negative parts
	PFE    float64 // quantile at the requested level
}

// Profile aggregates depth of the given trades (all trades when ids is
// empty) per sample and summarises each date across samples. When a is not
// nil, values are divided by the numeraire of their date and sample.
func Profile(c Cube, a *AggregationData, ids []string, depth int, quantile float64) ([]ProfilePoint, error) {
	if quantile <= 0 || quantile >= 1 {
		return nil, fmt.Errorf("profile quantile %g must be in (0, 1)", quantile)
	}
	if depth < 0 || depth >= c.Depth() {
		return nil, fmt.Errorf("%w: depth %d", ErrUnknownCoordinate, depth)
	}
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		i, err := c.IDIndex(id)
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	if len(ids) == 0 {
		for i := 0; i < c.NumIDs(); i++ {
			idx = append(idx, i)
		}
	}
	if a != nil {
		if err := CheckAggregation(c, a); err != nil {
			return nil, err
		}
	}

	out := make([]ProfilePoint, c.NumDates())
	values := make([]float64, c.Samples())
	row := make([]float64, len(idx))
	for j, d := range c.Dates() {
		for s := range values {
			for n, i := range idx {
				row[n], _ = c.GetAt(i, j, s, depth)
			}
			v := floats.Sum(row)
			if a != nil {
				num, _ := a.Get(j, s, Numeraire)
				if num != 0 {
					v /= num
				}
			}
			values[s] = v
		}

		var pos, neg float64
		for _, v := range values {
			pos += math.Max(v, 0)
			neg += math.Min(v, 0)
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = 0
		}
		out[j] = ProfilePoint{
			Date:   d,
			Mean:   mean,
			StdDev: std,
			EPE:    pos / float64(len(values)),
			ENE:    neg / float64(len(values)),
			PFE:    stat.Quantile(quantile, stat.Empirical, sorted, nil),
		}
	}
	return out, nil
}
