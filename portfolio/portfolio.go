package portfolio

import (
	"fmt"
	"sort"
	"time"
)

// Portfolio is an ordered set of trades with unique ids. The order is the
// cube's trade axis.
type Portfolio struct {
	trades []Trade
	index  map[string]int
}

func New(trades ...Trade) (*Portfolio, error) {
	p := &Portfolio{index: make(map[string]int, len(trades))}
	for _, t := range trades {
		if err := p.Add(t); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends t. Ids must be unique.
func (p *Portfolio) Add(t Trade) error {
	if err := validateTrade(t); err != nil {
		return err
	}
	if _, ok := p.index[t.ID()]; ok {
		return fmt.Errorf("duplicate trade id %s", t.ID())
	}
	p.index[t.ID()] = len(p.trades)
	p.trades = append(p.trades, t)
	return nil
}

func (p *Portfolio) Len() int        { return len(p.trades) }
func (p *Portfolio) Trades() []Trade { return p.trades }

func (p *Portfolio) IDs() []string {
	out := make([]string, len(p.trades))
	for i, t := range p.trades {
		out[i] = t.ID()
	}
	return out
}

func (p *Portfolio) Get(id string) (Trade, bool) {
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.trades[i], true
}

// Maturity is the latest trade maturity.
func (p *Portfolio) Maturity() time.Time {
	var out time.Time
	for _, t := range p.trades {
		if t.Maturity().After(out) {
			out = t.Maturity()
		}
	}
	return out
}

// FixingDates merges the fixing dates of all trades, sorted and unique per
// index.
func (p *Portfolio) FixingDates() map[string][]time.Time {
	seen := map[string]map[time.Time]bool{}
	out := map[string][]time.Time{}
	for _, t := range p.trades {
		fd, ok := t.(FixingDependent)
		if !ok {
			continue
		}
		for ix, ds := range fd.FixingDates() {
			if seen[ix] == nil {
				seen[ix] = map[time.Time]bool{}
			}
			for _, d := range ds {
				if !seen[ix][d] {
					seen[ix][d] = true
					out[ix] = append(out[ix], d)
				}
			}
		}
	}
	for _, ds := range out {
		sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
	}
	return out
}

// CountByType is used for run summaries.
func (p *Portfolio) CountByType() map[string]int {
	out := map[string]int{}
	for _, t := range p.trades {
		out[t.Type()]++
	}
	return out
}
