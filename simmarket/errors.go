package simmarket

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/scenario"
)

const maxListedKeys = 10

func listKeys(keys []scenario.Key) string {
	var b strings.Builder
	for i, k := range keys {
		if i == maxListedKeys {
			fmt.Fprintf(&b, " ... (%d more)", len(keys)-maxListedKeys)
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.String())
	}
	return b.String()
}

// MissingScenarioDataError is returned by Update when registered quote
// cells received no value from the scenario.
type MissingScenarioDataError struct {
	Date    time.Time
	Missing []scenario.Key
}

func (e *MissingScenarioDataError) Error() string {
	return fmt.Sprintf("scenario for %s is missing %d registered keys: %s",
		dates.Format(e.Date), len(e.Missing), listKeys(e.Missing))
}

// ScenarioSizeMismatchError is returned by Update when the scenario holds
// keys the market has no quote cell for.
type ScenarioSizeMismatchError struct {
	Date       time.Time
	Registered int
	Supplied   int
	Extra      []scenario.Key
}

func (e *ScenarioSizeMismatchError) Error() string {
	return fmt.Sprintf("scenario for %s has %d keys but the market registers %d; unknown keys: %s",
		dates.Format(e.Date), e.Supplied, e.Registered, listKeys(e.Extra))
}
