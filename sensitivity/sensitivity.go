// Package sensitivity values a portfolio under bumped copies of today's
// market and reads deltas, gammas and stress results off the cube.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/engine"
	"github.com/rustyeddy/simcube/portfolio"
	"github.com/rustyeddy/simcube/scenario"
)

// Market is a simulation market whose scenario source can be swapped.
// simmarket.Market implements it.
type Market interface {
	engine.SimMarket
	SetGenerator(gen scenario.Generator) error
}

// Run prices p once per scenario of gen on today's date and wraps the
// result. opts are passed to the engine.
func Run(ctx context.Context, m Market, p *portfolio.Portfolio, gen *scenario.ShiftGenerator, opts ...engine.Option) (*Cube, error) {
	if m == nil || gen == nil {
		return nil, errors.New("sensitivity: market and generator are required")
	}
	if p == nil || p.Len() == 0 {
		return nil, errors.New("sensitivity: portfolio is empty")
	}
	if err := m.SetGenerator(gen); err != nil {
		return nil, err
	}
	asof := m.AsOf()
	grid := []time.Time{asof}
	c, err := cube.New(asof, p.IDs(), grid, gen.Len(), 1, cube.Double)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(asof, grid, gen.Len(), m, append(opts, engine.WithTodayOnGrid())...)
	if err != nil {
		return nil, err
	}
	if err := e.BuildCube(ctx, p, c, engine.NewNPVCalculator()); err != nil {
		return nil, fmt.Errorf("sensitivity run: %w", err)
	}
	return NewCube(c, gen.Descriptions(), gen.Shifts())
}
