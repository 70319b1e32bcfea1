package simmarket

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
)

// FixingManager supplies index fixings along each simulated path. Fixing
// dates registered by trades that fall between two updates receive the
// rate fixed off the simulated curve at the later update. Each sample keeps
// its own history so dates can be the outer loop.
type FixingManager struct {
	today   time.Time
	indices map[string]*marketdata.IborIndex
	history map[string]marketdata.FixingSource
	dates   map[string][]time.Time

	paths   []marketdata.FixingHistory
	last    []time.Time
	current int
}

func NewFixingManager(today time.Time) *FixingManager {
	return &FixingManager{
		today:   today,
		indices: make(map[string]*marketdata.IborIndex),
		history: make(map[string]marketdata.FixingSource),
		dates:   make(map[string][]time.Time),
	}
}

// AddIndex makes ix eligible for path fixings. history supplies fixings
// known today.
func (f *FixingManager) AddIndex(ix *marketdata.IborIndex, history marketdata.FixingSource) {
	f.indices[ix.Name] = ix
	if history != nil {
		f.history[ix.Name] = history
	}
}

// Register records fixing dates some trade depends on. Dates on or before
// today are ignored; they come from history.
func (f *FixingManager) Register(index string, ds ...time.Time) error {
	if _, ok := f.indices[index]; !ok {
		return fmt.Errorf("fixing dates registered for unknown index %s", index)
	}
	for _, d := range ds {
		if !d.After(f.today) {
			continue
		}
		f.dates[index] = insertDate(f.dates[index], d)
	}
	return nil
}

func insertDate(ds []time.Time, d time.Time) []time.Time {
	i := sort.Search(len(ds), func(i int) bool { return !ds[i].Before(d) })
	if i < len(ds) && ds[i].Equal(d) {
		return ds
	}
	ds = append(ds, time.Time{})
	copy(ds[i+1:], ds[i:])
	ds[i] = d
	return ds
}

// Update moves sample's path to d. The market must already reflect the
// scenario for d.
func (f *FixingManager) Update(d time.Time, sample int) error {
	for len(f.paths) <= sample {
		f.paths = append(f.paths, marketdata.FixingHistory{})
		f.last = append(f.last, f.today)
	}
	prev := f.last[sample]
	if d.Before(prev) {
		return fmt.Errorf("fixing manager: sample %d moved back from %s to %s without reset",
			sample, dates.Format(prev), dates.Format(d))
	}
	f.current = sample

	for name, fds := range f.dates {
		ix := f.indices[name]
		lo := sort.Search(len(fds), func(i int) bool { return !fds[i].Before(prev) })
		var rate float64
		computed := false
		for _, fd := range fds[lo:] {
			if !fd.Before(d) {
				break
			}
			if !computed {
				rate = ix.Forecast(d)
				computed = true
			}
			f.paths[sample].Add(name, fd, rate)
		}
	}
	f.last[sample] = d
	return nil
}

// Fixing implements marketdata.FixingSource for the current sample.
func (f *FixingManager) Fixing(index string, d time.Time) (float64, bool) {
	if f.current < len(f.paths) {
		if v, ok := f.paths[f.current].Fixing(index, d); ok {
			return v, true
		}
	}
	if h, ok := f.history[index]; ok {
		return h.Fixing(index, d)
	}
	return 0, false
}

// Reset drops all path history.
func (f *FixingManager) Reset() {
	f.paths = nil
	f.last = nil
	f.current = 0
}
