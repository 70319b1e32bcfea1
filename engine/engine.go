// Package engine drives a simulation market through a date grid and fills
// an NPV cube with the results of a set of valuation calculators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/internal/metrics"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/portfolio"
)

// SimMarket is the market the engine moves. simmarket.Market implements it.
type SimMarket interface {
	marketdata.Market
	Update(d time.Time) error
	Reset() error
	RegisterFixingDates(index string, ds ...time.Time) error
}

type fixingTimer interface {
	FixingTime() time.Duration
}

// Timings of the last BuildCube.
type Timings struct {
	T0      time.Duration
	Update  time.Duration
	Fixing  time.Duration
	Pricing time.Duration
	Total   time.Duration
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithContinueOnError keeps going after pricing errors. The failed cell is
// left at zero and the error is recorded.
func WithContinueOnError(on bool) Option {
	return func(e *Engine) { e.continueOnError = on }
}

// WithWorkers prices the trades of one (date, sample) on n goroutines.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithErrorHandler is called for every recorded pricing error.
func WithErrorHandler(fn func(*PricingError)) Option {
	return func(e *Engine) { e.onError = fn }
}

func WithProgress(p ...ProgressIndicator) Option {
	return func(e *Engine) { e.progress = append(e.progress, p...) }
}

// WithTodayOnGrid lets the grid start at today, as a run that values the
// portfolio under bumped copies of today's market does.
func WithTodayOnGrid() Option {
	return func(e *Engine) { e.todayOnGrid = true }
}

// WithAggregationData checks the market's aggregation sink against the
// grid.
func WithAggregationData(a *cube.AggregationData) Option {
	return func(e *Engine) { e.asd = a }
}

type Engine struct {
	log             zerolog.Logger
	today           time.Time
	grid            []time.Time
	samples         int
	market          SimMarket
	continueOnError bool
	workers         int
	metrics         *metrics.Metrics
	onError         func(*PricingError)
	progress        []ProgressIndicator
	asd             *cube.AggregationData
	todayOnGrid     bool

	mu      sync.Mutex
	errs    []*PricingError
	timings Timings
}

func New(today time.Time, grid []time.Time, samples int, market SimMarket, opts ...Option) (*Engine, error) {
	if market == nil {
		return nil, errors.New("valuation engine: market is required")
	}
	if len(grid) == 0 {
		return nil, errors.New("valuation engine: date grid is empty")
	}
	e := &Engine{
		log:     zerolog.Nop(),
		today:   today,
		grid:    grid,
		samples: samples,
		market:  market,
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !today.Before(grid[0]) && !(e.todayOnGrid && today.Equal(grid[0])) {
		return nil, fmt.Errorf("valuation engine: today %s must be before the first grid date %s",
			dates.Format(today), dates.Format(grid[0]))
	}
	for i := 1; i < len(grid); i++ {
		if !grid[i].After(grid[i-1]) {
			return nil, fmt.Errorf("valuation engine: grid dates must increase, %s after %s",
				dates.Format(grid[i]), dates.Format(grid[i-1]))
		}
	}
	if samples < 1 {
		return nil, fmt.Errorf("valuation engine: samples must be positive, got %d", samples)
	}
	if e.asd != nil && (e.asd.NumDates() != len(grid) || e.asd.Samples() != samples) {
		return nil, fmt.Errorf("valuation engine: aggregation data is %d dates x %d samples, run is %d x %d",
			e.asd.NumDates(), e.asd.Samples(), len(grid), samples)
	}
	return e, nil
}

// Errors returns the pricing errors recorded by the last BuildCube.
func (e *Engine) Errors() []*PricingError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*PricingError(nil), e.errs...)
}

func (e *Engine) Timings() Timings { return e.timings }

// handle records a pricing error, or returns it when the run must stop.
func (e *Engine) handle(pe *PricingError) error {
	if e.metrics != nil {
		e.metrics.PricingErrors.WithLabelValues(pe.Calculator).Inc()
	}
	if !e.continueOnError {
		return pe
	}
	e.log.Warn().
		Str("trade", pe.TradeID).
		Str("calculator", pe.Calculator).
		Int("sample", pe.Sample).
		Time("date", pe.Date).
		Err(pe.Err).
		Msg("pricing failed, cell left at zero")
	e.mu.Lock()
	e.errs = append(e.errs, pe)
	e.mu.Unlock()
	if e.onError != nil {
		e.onError(pe)
	}
	return nil
}

func (e *Engine) report(done, total int, detail string) {
	for _, p := range e.progress {
		p.Update(done, total, detail)
	}
	if e.metrics != nil {
		e.metrics.Progress.Set(float64(done) / float64(total))
	}
}

// BuildCube fills c for every trade of p. Dates are the outer loop and
// samples the inner one, one market update per (date, sample).
func (e *Engine) BuildCube(ctx context.Context, p *portfolio.Portfolio, c cube.Cube, calcs ...ValuationCalculator) error {
	if p == nil || p.Len() == 0 {
		return errors.New("valuation engine: portfolio is empty")
	}
	if len(calcs) == 0 {
		return errors.New("valuation engine: no calculators")
	}
	if err := cube.CheckDimensions(c, p.IDs(), e.grid, e.samples); err != nil {
		return err
	}

	e.mu.Lock()
	e.errs = nil
	e.mu.Unlock()
	e.timings = Timings{}
	begin := time.Now()

	if err := e.market.Reset(); err != nil {
		return err
	}
	var fixingBase time.Duration
	ft, hasFixingTime := e.market.(fixingTimer)
	if hasFixingTime {
		fixingBase = ft.FixingTime()
	}

	start := time.Now()
	for ix, ds := range p.FixingDates() {
		if err := e.market.RegisterFixingDates(ix, ds...); err != nil {
			return fmt.Errorf("register fixing dates: %w", err)
		}
	}
	e.timings.Fixing = time.Since(start)

	trades := p.Trades()
	e.log.Info().
		Int("trades", len(trades)).
		Int("dates", len(e.grid)).
		Int("samples", e.samples).
		Int("workers", e.workers).
		Msg("starting valuation")
	if e.metrics != nil {
		e.metrics.CubeCells.Set(float64(c.NumIDs() * c.NumDates() * c.Samples() * c.Depth()))
	}

	start = time.Now()
	for i, t := range trades {
		for _, calc := range calcs {
			if err := calc.CalculateT0(t, i, e.market, c); err != nil {
				if herr := e.handle(&PricingError{TradeID: t.ID(), Date: e.today, Sample: -1, Calculator: calc.Name(), Err: err}); herr != nil {
					return herr
				}
			}
		}
	}
	e.timings.T0 = time.Since(start)

	total := len(e.grid) * e.samples
	e.report(0, total, dates.Format(e.today))
	for di, d := range e.grid {
		for s := 0; s < e.samples; s++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			start = time.Now()
			if err := e.market.Update(d); err != nil {
				return fmt.Errorf("market update %s sample %d: %w", dates.Format(d), s, err)
			}
			e.timings.Update += time.Since(start)
			if e.metrics != nil {
				e.metrics.MarketUpdates.Inc()
			}

			start = time.Now()
			if err := e.price(ctx, trades, calcs, c, d, di, s); err != nil {
				return err
			}
			e.timings.Pricing += time.Since(start)
			e.report(di*e.samples+s+1, total, dates.Format(d))
		}
	}

	if hasFixingTime {
		moved := ft.FixingTime() - fixingBase
		e.timings.Fixing += moved
		e.timings.Update -= moved
	}
	e.timings.Total = time.Since(begin)
	if e.metrics != nil {
		e.metrics.ObservePhase("t0", e.timings.T0)
		e.metrics.ObservePhase("update", e.timings.Update)
		e.metrics.ObservePhase("fixing", e.timings.Fixing)
		e.metrics.ObservePhase("pricing", e.timings.Pricing)
	}
	e.log.Info().
		Dur("total", e.timings.Total).
		Dur("t0", e.timings.T0).
		Dur("update", e.timings.Update).
		Dur("fixing", e.timings.Fixing).
		Dur("pricing", e.timings.Pricing).
		Int("errors", len(e.Errors())).
		Msg("valuation completed")
	return nil
}

func (e *Engine) priceTrade(t portfolio.Trade, i int, calcs []ValuationCalculator, c cube.Cube, d time.Time, di, s int) error {
	for _, calc := range calcs {
		err := calc.Calculate(t, i, e.market, c, d, di, s)
		if e.metrics != nil {
			e.metrics.Valuations.WithLabelValues(calc.Name()).Inc()
		}
		if err != nil {
			if herr := e.handle(&PricingError{TradeID: t.ID(), Date: d, Sample: s, Calculator: calc.Name(), Err: err}); herr != nil {
				return herr
			}
		}
	}
	return nil
}

// price runs every calculator on every trade. With more than one worker
// the trades fan out; calculators only read the settled market and write
// their own trade's cells.
func (e *Engine) price(ctx context.Context, trades []portfolio.Trade, calcs []ValuationCalculator, c cube.Cube, d time.Time, di, s int) error {
	if e.workers <= 1 {
		for i, t := range trades {
			if err := e.priceTrade(t, i, calcs, c, d, di, s); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, t := range trades {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.priceTrade(t, i, calcs, c, d, di, s)
		})
	}
	return g.Wait()
}
