package dates

import (
	"fmt"
	"strings"
	"time"
)

// DayCounter converts a pair of dates to a year fraction.
type DayCounter string

const (
	Actual365Fixed DayCounter = "A365F"
	Actual360      DayCounter = "A360"
	ActualActual   DayCounter = "ActAct"
	Thirty360      DayCounter = "30/360"
)

// ParseDayCounter accepts the common spellings of the supported conventions.
// An empty string yields Actual365Fixed.
func ParseDayCounter(s string) (DayCounter, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "A365F", "A365", "ACT/365F", "ACT/365", "ACTUAL/365 (FIXED)":
		return Actual365Fixed, nil
	case "A360", "ACT/360", "ACTUAL/360":
		return Actual360, nil
	case "ACTACT", "ACT/ACT", "ACTUAL/ACTUAL":
		return ActualActual, nil
	case "30/360", "30E/360", "THIRTY360":
		return Thirty360, nil
	}
	return "", fmt.Errorf("unsupported day counter %q", s)
}

// YearFraction computes the year fraction between two dates. It is negative
// when end is before start.
func (dc DayCounter) YearFraction(start, end time.Time) float64 {
	if end.Before(start) {
		return -dc.YearFraction(end, start)
	}
	switch dc {
	case Actual360:
		return DaysBetween(start, end) / 360.0
	case ActualActual:
		return actAct(start, end)
	case Thirty360:
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return DaysBetween(start, end) / 365.0
	}
}

// actAct is the ISDA actual/actual convention: days in each calendar year are
// divided by that year's length.
func actAct(start, end time.Time) float64 {
	if start.Year() == end.Year() {
		return DaysBetween(start, end) / daysInYear(start.Year())
	}
	nextYear := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, start.Location())
	yf := DaysBetween(start, nextYear) / daysInYear(start.Year())
	yf += float64(end.Year() - start.Year() - 1)
	lastYear := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, end.Location())
	yf += DaysBetween(lastYear, end) / daysInYear(end.Year())
	return yf
}

func daysInYear(y int) float64 {
	if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		return 366
	}
	return 365
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}
