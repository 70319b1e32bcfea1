package engine

import (
	"time"

	"github.com/rs/zerolog"
)

// ProgressIndicator is told how many of the run's (date, sample) steps are
// done.
type ProgressIndicator interface {
	Update(done, total int, detail string)
}

// ProgressFunc adapts a function to a ProgressIndicator.
type ProgressFunc func(done, total int, detail string)

func (f ProgressFunc) Update(done, total int, detail string) { f(done, total, detail) }

// LogProgress logs at most once per Percent of progress, and always at the
// end.
type LogProgress struct {
	log     zerolog.Logger
	percent int
	next    int
	start   time.Time
}

func NewLogProgress(log zerolog.Logger, percent int) *LogProgress {
	if percent <= 0 || percent > 100 {
		percent = 10
	}
	return &LogProgress{log: log, percent: percent}
}

func (p *LogProgress) Update(done, total int, detail string) {
	if total <= 0 {
		return
	}
	if done == 0 {
		p.next = 0
		p.start = time.Now()
	}
	pct := done * 100 / total
	if pct < p.next && done < total {
		return
	}
	p.next = (pct/p.percent + 1) * p.percent
	p.log.Info().
		Int("done", done).
		Int("total", total).
		Int("pct", pct).
		Str("at", detail).
		Dur("elapsed", time.Since(p.start)).
		Msg("valuation progress")
}
