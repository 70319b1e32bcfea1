// Package journal records valuation runs: what was priced, how long each
// phase took and which trades failed.
package journal

import "time"

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord describes one BuildCube run.
type RunRecord struct {
	RunID         string
	Created       time.Time
	AsOf          time.Time
	Name          string
	Configuration string

	Trades          int
	Dates           int
	Samples         int
	Depth           int
	Precision       string
	ObservationMode string
	Workers         int

	CubePath string
	Config   []byte // run config as written to disk

	T0      time.Duration
	Update  time.Duration
	Fixing  time.Duration
	Pricing time.Duration
	Total   time.Duration

	Errors  int
	Status  string
	Message string
}

// Cells is the number of cube cells the run filled.
func (r RunRecord) Cells() int {
	return r.Trades * r.Dates * r.Samples * r.Depth
}

// ErrorRecord is a pricing failure kept when a run continues on error.
// Sample is -1 for today's valuation.
type ErrorRecord struct {
	RunID      string
	TradeID    string
	Calculator string
	Date       time.Time
	Sample     int
	Message    string
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordError(ErrorRecord) error
	Close() error
}
