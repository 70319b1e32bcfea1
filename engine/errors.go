package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// PricingError is a calculator failure for one trade. Sample is -1 for T0.
type PricingError struct {
	TradeID    string
	Date       time.Time
	Sample     int
	Calculator string
	Err        error
}

func (e *PricingError) Error() string {
	if e.Sample < 0 {
		return fmt.Sprintf("%s T0 valuation of trade %s failed: %v", e.Calculator, e.TradeID, e.Err)
	}
	return fmt.Sprintf("%s valuation of trade %s on %s sample %d failed: %v",
		e.Calculator, e.TradeID, dates.Format(e.Date), e.Sample, e.Err)
}

func (e *PricingError) Unwrap() error { return e.Err }
