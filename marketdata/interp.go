package marketdata

import (
	"sort"

	"gonum.org/v1/gonum/interp"
)

// extrapolation beyond the last pillar.
type extrapolation int

const (
	extrapolateFlat extrapolation = iota
	extrapolateLinear
)

// linear is a piecewise linear fit with flat extrapolation to the left and
// a configurable policy to the right.
type linear struct {
	xs, ys []float64
	right  extrapolation
	pl     interp.PiecewiseLinear
}

func (l *linear) fit(xs, ys []float64) error {
	l.xs = append(l.xs[:0], xs...)
	l.ys = append(l.ys[:0], ys...)
	if len(xs) < 2 {
		return nil
	}
	return l.pl.Fit(l.xs, l.ys)
}

func (l *linear) at(x float64) float64 {
	n := len(l.xs)
	switch {
	case n == 0:
		return 0
	case n == 1 || x <= l.xs[0]:
		return l.ys[0]
	case x >= l.xs[n-1]:
		if l.right == extrapolateFlat {
			return l.ys[n-1]
		}
		slope := (l.ys[n-1] - l.ys[n-2]) / (l.xs[n-1] - l.xs[n-2])
		return l.ys[n-1] + slope*(x-l.xs[n-1])
	}
	return l.pl.Predict(x)
}

// bilinear interpolates on a rows x cols grid of values stored row major,
// extrapolating flat in both directions. gonum's interp package only offers
// one dimensional fits.
func bilinear(rows, cols, vals []float64, x, y float64) float64 {
	i, wx := bracket(rows, x)
	j, wy := bracket(cols, y)
	nc := len(cols)
	at := func(r, c int) float64 { return vals[r*nc+c] }

	i1, j1 := i, j
	if i+1 < len(rows) {
		i1 = i + 1
	}
	if j+1 < nc {
		j1 = j + 1
	}
	v0 := at(i, j)*(1-wy) + at(i, j1)*wy
	v1 := at(i1, j)*(1-wy) + at(i1, j1)*wy
	return v0*(1-wx) + v1*wx
}

// bracket returns the lower index of the segment containing x and the weight
// of the upper end, clamped to [0, 1].
func bracket(xs []float64, x float64) (int, float64) {
	n := len(xs)
	if n == 1 || x <= xs[0] {
		return 0, 0
	}
	if x >= xs[n-1] {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return i, 0
	}
	i--
	return i, (x - xs[i]) / (xs[i+1] - xs[i])
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}
