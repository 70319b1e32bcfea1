package scenario

import (
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// Generator streams scenarios. Next is called once per (date, sample) step
// in the order the valuation loop visits them; Reset rewinds the stream so
// the next call returns the first scenario again.
type Generator interface {
	Next(d time.Time) (Scenario, error)
	Reset() error
}

// StaticGenerator returns a copy of the same base scenario for every date.
type StaticGenerator struct {
	base Scenario
}

func NewStaticGenerator(base Scenario) *StaticGenerator {
	return &StaticGenerator{base: base}
}

func (g *StaticGenerator) Next(d time.Time) (Scenario, error) {
	return Clone(g.base, d), nil
}

func (g *StaticGenerator) Reset() error { return nil }

// SliceGenerator replays a fixed sequence of scenarios. The requested date
// must match the stored scenario's date.
type SliceGenerator struct {
	scenarios []Scenario
	i         int
}

func NewSliceGenerator(scenarios ...Scenario) *SliceGenerator {
	return &SliceGenerator{scenarios: scenarios}
}

func (g *SliceGenerator) Next(d time.Time) (Scenario, error) {
	if g.i >= len(g.scenarios) {
		return nil, fmt.Errorf("scenario stream exhausted after %d scenarios", len(g.scenarios))
	}
	s := g.scenarios[g.i]
	if !s.AsOf().Equal(d) {
		return nil, fmt.Errorf("scenario %d is for %s, requested %s", g.i, dates.Format(s.AsOf()), dates.Format(d))
	}
	g.i++
	return s, nil
}

func (g *SliceGenerator) Reset() error {
	g.i = 0
	return nil
}

// GeneratorFunc adapts a function to a Generator. The step argument counts
// calls since the last Reset.
type GeneratorFunc func(d time.Time, step int) (Scenario, error)

// FuncGenerator wraps a GeneratorFunc.
type FuncGenerator struct {
	fn   GeneratorFunc
	step int
}

func NewFuncGenerator(fn GeneratorFunc) *FuncGenerator {
	return &FuncGenerator{fn: fn}
}

func (g *FuncGenerator) Next(d time.Time) (Scenario, error) {
	s, err := g.fn(d, g.step)
	if err != nil {
		return nil, err
	}
	g.step++
	return s, nil
}

func (g *FuncGenerator) Reset() error {
	g.step = 0
	return nil
}
