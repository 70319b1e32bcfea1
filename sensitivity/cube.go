package sensitivity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/scenario"
)

// PortfolioID labels the rows that sum every trade.
const PortfolioID = "Portfolio"

// Cube is an NPV cube with one date and one sample per scenario, read
// through the scenario descriptions.
type Cube struct {
	npv     cube.Cube
	descs   []scenario.Description
	shifts  map[scenario.Key]scenario.Shift
	samples map[scenario.Description]int
	factors []scenario.Key
	crosses [][2]scenario.Key
}

// NewCube checks c against descs, which must start with the base scenario.
func NewCube(c cube.Cube, descs []scenario.Description, shifts map[scenario.Key]scenario.Shift) (*Cube, error) {
	if c == nil {
		return nil, fmt.Errorf("sensitivity cube: npv cube is required")
	}
	if c.NumDates() != 1 {
		return nil, fmt.Errorf("sensitivity cube: npv cube has %d dates, want 1", c.NumDates())
	}
	if len(descs) == 0 || descs[0].Type != scenario.Base {
		return nil, fmt.Errorf("sensitivity cube: first scenario must be the base")
	}
	if c.Samples() != len(descs) {
		return nil, fmt.Errorf("sensitivity cube: %d samples for %d scenarios", c.Samples(), len(descs))
	}
	sc := &Cube{
		npv:     c,
		descs:   descs,
		shifts:  shifts,
		samples: make(map[scenario.Description]int, len(descs)),
	}
	for i, d := range descs {
		if _, dup := sc.samples[d]; dup {
			return nil, fmt.Errorf("sensitivity cube: scenario %s appears twice", d)
		}
		sc.samples[d] = i
		switch d.Type {
		case scenario.Up:
			sc.factors = append(sc.factors, d.Key1)
		case scenario.Cross:
			sc.crosses = append(sc.crosses, [2]scenario.Key{d.Key1, d.Key2})
		}
	}
	return sc, nil
}

func (c *Cube) NPVCube() cube.Cube { return c.npv }

func (c *Cube) IDs() []string { return c.npv.IDs() }

func (c *Cube) Descriptions() []scenario.Description {
	return append([]scenario.Description(nil), c.descs...)
}

// Factors lists the keys with an up scenario, in generator order.
func (c *Cube) Factors() []scenario.Key { return append([]scenario.Key(nil), c.factors...) }

func (c *Cube) CrossPairs() [][2]scenario.Key { return append([][2]scenario.Key(nil), c.crosses...) }

func (c *Cube) ShiftSize(k scenario.Key) (scenario.Shift, bool) {
	s, ok := c.shifts[k]
	return s, ok
}

// BaseNPV is the trade NPV on today's market.
func (c *Cube) BaseNPV(id string) (float64, error) {
	i, err := c.npv.IDIndex(id)
	if err != nil {
		return 0, err
	}
	return c.npv.T0(i, cube.NPVDepth)
}

// NPV is the trade NPV under the scenario d.
func (c *Cube) NPV(id string, d scenario.Description) (float64, error) {
	s, ok := c.samples[d]
	if !ok {
		return 0, fmt.Errorf("%w: scenario %s", cube.ErrUnknownCoordinate, d)
	}
	i, err := c.npv.IDIndex(id)
	if err != nil {
		return 0, err
	}
	return c.npv.GetAt(i, 0, s, cube.NPVDepth)
}

// values reads the base NPV and the NPVs of ds for one trade.
func (c *Cube) values(id string, ds ...scenario.Description) (float64, []float64, error) {
	base, err := c.BaseNPV(id)
	if err != nil {
		return 0, nil, err
	}
	out := make([]float64, len(ds))
	for n, d := range ds {
		if out[n], err = c.NPV(id, d); err != nil {
			return 0, nil, err
		}
	}
	return base, out, nil
}

// Delta is the up NPV less the base NPV.
func (c *Cube) Delta(id string, k scenario.Key) (float64, error) {
	base, v, err := c.values(id, scenario.Description{Type: scenario.Up, Key1: k})
	if err != nil {
		return 0, err
	}
	return v[0] - base, nil
}

// Gamma is the second difference of the up, base and down NPVs.
func (c *Cube) Gamma(id string, k scenario.Key) (float64, error) {
	base, v, err := c.values(id,
		scenario.Description{Type: scenario.Up, Key1: k},
		scenario.Description{Type: scenario.Down, Key1: k})
	if err != nil {
		return 0, err
	}
	return v[0] - 2*base + v[1], nil
}

// CrossGamma is the joint up NPV less both single up NPVs, plus the base.
func (c *Cube) CrossGamma(id string, k1, k2 scenario.Key) (float64, error) {
	base, v, err := c.values(id,
		scenario.Description{Type: scenario.Cross, Key1: k1, Key2: k2},
		scenario.Description{Type: scenario.Up, Key1: k1},
		scenario.Description{Type: scenario.Up, Key1: k2})
	if err != nil {
		return 0, err
	}
	return v[0] - v[1] - v[2] + base, nil
}

// Record is one line of a sensitivity report. Cross gamma lines carry
// Factor2 and leave Delta at zero.
type Record struct {
	TradeID string
	Factor1 scenario.Key
	Shift1  scenario.Shift
	Factor2 scenario.Key
	Shift2  scenario.Shift
	BaseNPV float64
	Delta   float64
	Gamma   float64
}

func (r Record) Cross() bool { return r.Factor2 != (scenario.Key{}) }

// Records lists delta and gamma per trade and factor, then cross gammas,
// then the portfolio sums. Lines whose delta and gamma are both below
// threshold in absolute value are dropped.
func (c *Cube) Records(threshold float64) ([]Record, error) {
	var out []Record
	keep := func(r Record) {
		if math.Abs(r.Delta) >= threshold || math.Abs(r.Gamma) >= threshold {
			out = append(out, r)
		}
	}

	ids := c.IDs()
	bases := make([]float64, len(ids))
	for i, id := range ids {
		var err error
		if bases[i], err = c.BaseNPV(id); err != nil {
			return nil, err
		}
	}
	total := floats.Sum(bases)

	for _, k := range c.factors {
		deltas := make([]float64, len(ids))
		gammas := make([]float64, len(ids))
		for i, id := range ids {
			var err error
			if deltas[i], err = c.Delta(id, k); err != nil {
				return nil, err
			}
			if gammas[i], err = c.Gamma(id, k); err != nil {
				return nil, err
			}
			keep(Record{TradeID: id, Factor1: k, Shift1: c.shifts[k], BaseNPV: bases[i], Delta: deltas[i], Gamma: gammas[i]})
		}
		keep(Record{TradeID: PortfolioID, Factor1: k, Shift1: c.shifts[k], BaseNPV: total,
			Delta: floats.Sum(deltas), Gamma: floats.Sum(gammas)})
	}

	for _, p := range c.crosses {
		gammas := make([]float64, len(ids))
		for i, id := range ids {
			var err error
			if gammas[i], err = c.CrossGamma(id, p[0], p[1]); err != nil {
				return nil, err
			}
			keep(Record{TradeID: id, Factor1: p[0], Shift1: c.shifts[p[0]], Factor2: p[1], Shift2: c.shifts[p[1]],
				BaseNPV: bases[i], Gamma: gammas[i]})
		}
		keep(Record{TradeID: PortfolioID, Factor1: p[0], Shift1: c.shifts[p[0]], Factor2: p[1], Shift2: c.shifts[p[1]],
			BaseNPV: total, Gamma: floats.Sum(gammas)})
	}
	return out, nil
}

// StressRecord is the NPV of one trade under one stress scenario.
type StressRecord struct {
	TradeID string
	Label   string
	BaseNPV float64
	NPV     float64
}

func (r StressRecord) Change() float64 { return r.NPV - r.BaseNPV }

// StressRecords lists every stress scenario per trade, each label closed
// by its portfolio sum.
func (c *Cube) StressRecords() ([]StressRecord, error) {
	var out []StressRecord
	ids := c.IDs()
	for _, d := range c.descs {
		if d.Type != scenario.Stress {
			continue
		}
		bases := make([]float64, len(ids))
		npvs := make([]float64, len(ids))
		for i, id := range ids {
			base, v, err := c.values(id, d)
			if err != nil {
				return nil, err
			}
			bases[i], npvs[i] = base, v[0]
			out = append(out, StressRecord{TradeID: id, Label: d.Label, BaseNPV: base, NPV: v[0]})
		}
		out = append(out, StressRecord{TradeID: PortfolioID, Label: d.Label, BaseNPV: floats.Sum(bases), NPV: floats.Sum(npvs)})
	}
	return out, nil
}
