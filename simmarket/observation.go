package simmarket

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/simcube/marketdata"
)

// ObservationMode controls how term structures learn about the quote writes
// of an update.
type ObservationMode int

const (
	// Disable sends no notifications while writing and refreshes every
	// structure once the whole scenario is applied.
	Disable ObservationMode = iota
	// Defer coalesces notifications into one invalidation per structure at
	// the end of the update; structures recompute on next read.
	Defer
	// Unregister builds curves that read their quotes on every call, so no
	// observer wiring is needed for them.
	Unregister
	// Accurate invalidates structures on every single write.
	Accurate
)

var observationNames = [...]string{
	Disable:    "Disable",
	Defer:      "Defer",
	Unregister: "Unregister",
	Accurate:   "Accurate",
}

func (m ObservationMode) String() string {
	if m < 0 || int(m) >= len(observationNames) {
		return fmt.Sprintf("ObservationMode(%d)", int(m))
	}
	return observationNames[m]
}

// ParseObservationMode is case-insensitive. Empty means Disable.
func ParseObservationMode(s string) (ObservationMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Disable, nil
	}
	for i, n := range observationNames {
		if strings.EqualFold(n, s) {
			return ObservationMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown observation mode %q", s)
}

func (m ObservationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ObservationMode) UnmarshalText(b []byte) error {
	v, err := ParseObservationMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m ObservationMode) notify() marketdata.NotifyMode {
	switch m {
	case Accurate:
		return marketdata.NotifyEachWrite
	case Defer:
		return marketdata.NotifyBatch
	}
	return marketdata.NotifyNone
}

// directCurves reports whether curves should bypass observation.
func (m ObservationMode) directCurves() bool { return m == Unregister }
