package dates

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02"

// ParseDate parses an ISO date (YYYY-MM-DD) as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}

// MustParseDate is ParseDate for literals.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string { return t.Format(layout) }

// Grid is the ordered set of simulation dates following an as-of date.
type Grid struct {
	AsOf   time.Time
	Dates  []time.Time
	Tenors []Period
}

// ParseGrid builds a grid from either "N,P" (N steps of period P, e.g.
// "10,1Y") or an explicit tenor list ("3M,6M,1Y,2Y").
func ParseGrid(asof time.Time, layout string) (*Grid, error) {
	parts := strings.Split(layout, ",")
	if len(parts) == 0 || strings.TrimSpace(layout) == "" {
		return nil, fmt.Errorf("empty date grid")
	}

	var tenors []Period
	if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && len(parts) == 2 {
		step, err := ParsePeriod(parts[1])
		if err != nil {
			return nil, fmt.Errorf("date grid %q: %w", layout, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("date grid %q: step count must be positive", layout)
		}
		for i := 1; i <= n; i++ {
			tenors = append(tenors, Period{N: i * step.N, Unit: step.Unit})
		}
	} else {
		ps, err := ParsePeriods(parts)
		if err != nil {
			return nil, fmt.Errorf("date grid %q: %w", layout, err)
		}
		tenors = ps
	}
	return NewGrid(asof, tenors)
}

// NewGrid rolls each tenor from asof. Tenors must be positive and strictly
// increasing.
func NewGrid(asof time.Time, tenors []Period) (*Grid, error) {
	if len(tenors) == 0 {
		return nil, fmt.Errorf("date grid needs at least one tenor")
	}
	if err := ValidateIncreasing(asof, tenors); err != nil {
		return nil, fmt.Errorf("date grid: %w", err)
	}
	g := &Grid{AsOf: asof, Tenors: tenors, Dates: make([]time.Time, len(tenors))}
	for i, p := range tenors {
		g.Dates[i] = p.AddTo(asof)
	}
	return g, nil
}

// GridFromDates builds a grid from explicit dates, which must all follow asof
// and be strictly increasing.
func GridFromDates(asof time.Time, ds []time.Time) (*Grid, error) {
	if len(ds) == 0 {
		return nil, fmt.Errorf("date grid needs at least one date")
	}
	prev := asof
	for i, d := range ds {
		if !d.After(prev) {
			return nil, fmt.Errorf("date grid: date %s at position %d is not increasing", Format(d), i)
		}
		prev = d
	}
	out := make([]time.Time, len(ds))
	copy(out, ds)
	return &Grid{AsOf: asof, Dates: out}, nil
}

// Len returns the number of simulation dates.
func (g *Grid) Len() int { return len(g.Dates) }

// Index returns the position of d in the grid.
func (g *Grid) Index(d time.Time) (int, bool) {
	i := sort.Search(len(g.Dates), func(i int) bool { return !g.Dates[i].Before(d) })
	if i < len(g.Dates) && g.Dates[i].Equal(d) {
		return i, true
	}
	return -1, false
}

// Times converts the grid dates to year fractions from the as-of date.
func (g *Grid) Times(dc DayCounter) []float64 {
	out := make([]float64, len(g.Dates))
	for i, d := range g.Dates {
		out[i] = dc.YearFraction(g.AsOf, d)
	}
	return out
}
