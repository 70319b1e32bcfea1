package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the time unit of a Period.
type Unit int8

const (
	Days Unit = iota
	Weeks
	Months
	Years
)

func (u Unit) String() string {
	switch u {
	case Days:
		return "D"
	case Weeks:
		return "W"
	case Months:
		return "M"
	case Years:
		return "Y"
	default:
		return "?"
	}
}

// Period is a tenor such as 1W, 3M or 10Y.
type Period struct {
	N    int
	Unit Unit
}

// ParsePeriod parses tenor strings like "1D", "2W", "3M", "10Y" (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return Period{}, fmt.Errorf("bad period %q", s)
	}

	var u Unit
	switch s[len(s)-1] {
	case 'D':
		u = Days
	case 'W':
		u = Weeks
	case 'M':
		u = Months
	case 'Y':
		u = Years
	default:
		return Period{}, fmt.Errorf("bad period %q: unknown unit", s)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Period{}, fmt.Errorf("bad period %q: %w", s, err)
	}
	return Period{N: n, Unit: u}, nil
}

// ParsePeriods parses a list of tenors. Each element may itself be a comma
// separated list.
func ParsePeriods(ss []string) ([]Period, error) {
	out := make([]Period, 0, len(ss))
	for _, s := range ss {
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			p, err := ParsePeriod(part)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// MustParsePeriods is ParsePeriods for literals in tests and defaults.
func MustParsePeriods(s string) []Period {
	ps, err := ParsePeriods([]string{s})
	if err != nil {
		panic(err)
	}
	return ps
}

func (p Period) String() string {
	return strconv.Itoa(p.N) + p.Unit.String()
}

// Positive reports whether the period moves forward in time.
func (p Period) Positive() bool { return p.N > 0 }

// Years is the nominal length in years, used for swap lengths.
func (p Period) Years() float64 {
	switch p.Unit {
	case Days:
		return float64(p.N) / 365
	case Weeks:
		return float64(7*p.N) / 365
	case Months:
		return float64(p.N) / 12
	}
	return float64(p.N)
}

// AddTo returns t advanced by the period. Month and year arithmetic clamps to
// the end of the target month (Excel EDATE behaviour).
func (p Period) AddTo(t time.Time) time.Time {
	switch p.Unit {
	case Days:
		return t.AddDate(0, 0, p.N)
	case Weeks:
		return t.AddDate(0, 0, 7*p.N)
	case Months:
		return AddMonths(t, p.N)
	case Years:
		return AddMonths(t, 12*p.N)
	}
	return t
}

// AddMonths behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ValidateIncreasing checks that tenors are positive and strictly increasing
// when rolled from asof.
func ValidateIncreasing(asof time.Time, ps []Period) error {
	prev := asof
	for i, p := range ps {
		if !p.Positive() {
			return fmt.Errorf("tenor %s at position %d must be positive", p, i)
		}
		d := p.AddTo(asof)
		if !d.After(prev) {
			return fmt.Errorf("tenor %s at position %d is not increasing", p, i)
		}
		prev = d
	}
	return nil
}
