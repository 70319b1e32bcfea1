package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/simcube/config"
	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/engine"
	"github.com/rustyeddy/simcube/internal/metrics"
	"github.com/rustyeddy/simcube/journal"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/pkg/id"
	"github.com/rustyeddy/simcube/portfolio"
	"github.com/rustyeddy/simcube/scenario"
	"github.com/rustyeddy/simcube/simmarket"
)

func newRunCmd(rc *rootOptions) *cobra.Command {
	var orgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build an NPV cube from a run config",
		Long: `Build the simulation market, value the portfolio on every grid date and
sample, and write the cube, the aggregation data and the run journal.

Example:
  simcube run --config run.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return err
			}
			res, err := runValuation(cmd.Context(), cfg, rc.log, cmd.OutOrStdout())
			if res != nil {
				printRun(cmd.OutOrStdout(), res.Record)
				if orgPath != "" {
					if oerr := res.Record.WriteOrgFile(orgPath, res.ErrorRecords()); oerr != nil {
						return fmt.Errorf("write org report: %w", oerr)
					}
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&orgPath, "org", "", "also write an Org mode run report to this path")
	return cmd
}

// runResult is what one valuation produced, kept for reporting.
type runResult struct {
	Record      journal.RunRecord
	Errors      []*engine.PricingError
	Cube        cube.Cube
	Aggregation *cube.AggregationData
}

func (r *runResult) ErrorRecords() []journal.ErrorRecord {
	out := make([]journal.ErrorRecord, 0, len(r.Errors))
	for _, pe := range r.Errors {
		out = append(out, journal.ErrorRecord{
			RunID:      r.Record.RunID,
			TradeID:    pe.TradeID,
			Calculator: pe.Calculator,
			Date:       pe.Date,
			Sample:     pe.Sample,
			Message:    pe.Err.Error(),
		})
	}
	return out
}

// scenarioSource opens the configured generator. With no input file every
// step replays the market's own base scenario, which base must supply once
// the market is built.
func scenarioSource(cfg *config.Config, base *scenario.Scenario) (scenario.Generator, func() error, error) {
	sep, err := cfg.Separator()
	if err != nil {
		return nil, nil, err
	}
	var (
		gen     scenario.Generator
		closers []func() error
	)
	if cfg.Scenarios.Input != "" {
		rd, err := scenario.NewReader(cfg.Scenarios.Input, sep)
		if err != nil {
			return nil, nil, err
		}
		gen = rd
		closers = append(closers, rd.Close)
	} else {
		gen = scenario.NewFuncGenerator(func(d time.Time, _ int) (scenario.Scenario, error) {
			if *base == nil {
				return nil, errors.New("base scenario not available")
			}
			return scenario.Clone(*base, d), nil
		})
	}
	if cfg.Scenarios.Dump != "" {
		w, err := scenario.NewWriter(gen, cfg.Scenarios.Dump,
			scenario.WithSeparator(sep),
			scenario.WithHeader(cfg.Scenarios.Header),
			scenario.WithNumeraire(cfg.Scenarios.Numeraire),
		)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		gen = w
		closers = append(closers, w.Close)
	}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return gen, closeAll, nil
}

// buildMarket loads today's market and wraps it in a simulation market.
func buildMarket(cfg *config.Config, log zerolog.Logger, asd *cube.AggregationData) (*simmarket.Market, func() error, error) {
	mode, err := cfg.ObservationMode()
	if err != nil {
		return nil, nil, err
	}
	snap, err := marketdata.NewStatic(cfg.Market)
	if err != nil {
		return nil, nil, fmt.Errorf("market: %w", err)
	}

	var base scenario.Scenario
	gen, closeGen, err := scenarioSource(cfg, &base)
	if err != nil {
		return nil, nil, err
	}
	opts := []simmarket.Option{
		simmarket.WithLogger(log),
		simmarket.WithObservationMode(mode),
	}
	if asd != nil {
		opts = append(opts, simmarket.WithAggregationData(asd))
	}
	m, err := simmarket.New(gen, snap, &cfg.Simulation, cfg.Run.Configuration, opts...)
	if err != nil {
		closeGen()
		return nil, nil, err
	}
	base = m.BaseScenario()
	return m, closeGen, nil
}

// steps prints one line per run step: its name and OK, SKIP or the error.
type steps struct{ w io.Writer }

func (s steps) done(name string, err error) error {
	if err != nil {
		fmt.Fprintf(s.w, "%-18s %v\n", name, err)
		return err
	}
	fmt.Fprintf(s.w, "%-18s OK\n", name)
	return nil
}

func (s steps) skip(name string) { fmt.Fprintf(s.w, "%-18s SKIP\n", name) }

// runValuation builds the cube described by cfg and reports each step on
// out. The returned result is non-nil whenever the run started, including
// failed runs, so the journal always sees it.
func runValuation(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) (*runResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	asof, err := cfg.AsOf()
	if err != nil {
		return nil, err
	}
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	precision, err := cfg.Precision()
	if err != nil {
		return nil, err
	}
	st := steps{w: out}
	p, err := portfolio.FromConfig(asof, cfg.Portfolio)
	if st.done("build portfolio", err) != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	samples := cfg.Run.Samples
	asd, err := cube.NewAggregationData(len(grid.Dates), samples, simmarket.AggregationSeries(&cfg.Simulation))
	if st.done("build aggregation", err) != nil {
		return nil, err
	}
	m, closeGen, err := buildMarket(cfg, log, asd)
	if st.done("build market", err) != nil {
		return nil, err
	}
	defer closeGen()

	c, err := cube.New(asof, p.IDs(), grid.Dates, samples, cfg.Run.Depth, precision)
	if st.done("build cube", err) != nil {
		return nil, err
	}
	calcs := []engine.ValuationCalculator{engine.NewNPVCalculator()}
	if cfg.Run.Depth > 1 {
		calcs = append(calcs, engine.NewCashflowCalculator(asof, grid.Dates))
	}

	runID := id.New()
	rlog := log.With().Str("run", runID).Logger()
	mx := metrics.New()
	e, err := engine.New(asof, grid.Dates, samples, m,
		engine.WithLogger(rlog),
		engine.WithContinueOnError(cfg.Run.ContinueOnError),
		engine.WithWorkers(cfg.Workers()),
		engine.WithMetrics(mx),
		engine.WithProgress(engine.NewLogProgress(rlog, 10)),
		engine.WithAggregationData(asd),
	)
	if st.done("build engine", err) != nil {
		return nil, err
	}

	raw, _ := yaml.Marshal(cfg)
	res := &runResult{
		Cube:        c,
		Aggregation: asd,
		Record: journal.RunRecord{
			RunID:           runID,
			Created:         time.Now().UTC(),
			AsOf:            asof,
			Name:            cfg.Run.Name,
			Configuration:   cfg.Run.Configuration,
			Trades:          p.Len(),
			Dates:           len(grid.Dates),
			Samples:         samples,
			Depth:           cfg.Run.Depth,
			Precision:       precision.String(),
			ObservationMode: m.Mode().String(),
			Workers:         cfg.Workers(),
			CubePath:        cfg.Output.Cube,
			Config:          raw,
		},
	}

	runErr := st.done("valuation", e.BuildCube(ctx, p, c, calcs...))
	if runErr == nil {
		runErr = writeOutputs(st, cfg, c, asd, mx)
	}

	t := e.Timings()
	res.Errors = e.Errors()
	res.Record.T0, res.Record.Update, res.Record.Fixing, res.Record.Pricing, res.Record.Total = t.T0, t.Update, t.Fixing, t.Pricing, t.Total
	res.Record.Errors = len(res.Errors)
	res.Record.Status = journal.StatusCompleted
	if runErr != nil {
		res.Record.Status = journal.StatusFailed
		res.Record.Message = runErr.Error()
		rlog.Error().Err(runErr).Msg("valuation failed")
	}

	if cfg.Output.Journal.Type == "" {
		st.skip("journal")
	} else if err := st.done("journal", recordRun(cfg.Output.Journal, res)); err != nil {
		rlog.Error().Err(err).Msg("journal write failed")
		if runErr == nil {
			runErr = fmt.Errorf("journal: %w", err)
		}
	}
	return res, runErr
}

func writeOutputs(st steps, cfg *config.Config, c cube.Cube, asd *cube.AggregationData, mx *metrics.Metrics) error {
	if err := st.done("save cube", cube.Save(cfg.Output.Cube, c)); err != nil {
		return fmt.Errorf("save cube: %w", err)
	}
	if cfg.Output.Aggregation == "" {
		st.skip("save aggregation")
	} else if err := st.done("save aggregation", cube.SaveAggregation(cfg.Output.Aggregation, asd)); err != nil {
		return fmt.Errorf("save aggregation data: %w", err)
	}
	if cfg.Output.Metrics == "" {
		st.skip("write metrics")
	} else if err := st.done("write metrics", mx.WriteTextfile(cfg.Output.Metrics)); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.Dir)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	}
	return nil, nil
}

func recordRun(jc config.JournalConfig, res *runResult) error {
	j, err := openJournal(jc)
	if err != nil || j == nil {
		return err
	}
	defer j.Close()

	if err := j.RecordRun(res.Record); err != nil {
		return err
	}
	for _, er := range res.ErrorRecords() {
		if err := j.RecordError(er); err != nil {
			return err
		}
	}
	return nil
}

func printRun(w io.Writer, r journal.RunRecord) {
	fmt.Fprintf(w, "Run %s %s\n", r.RunID, r.Status)
	fmt.Fprintf(w, "  Cube:    %d trades x %d dates x %d samples x %d depth (%s)\n",
		r.Trades, r.Dates, r.Samples, r.Depth, r.Precision)
	fmt.Fprintf(w, "  Output:  %s\n", r.CubePath)
	fmt.Fprintf(w, "  Timings: total %s, t0 %s, update %s, fixing %s, pricing %s\n",
		r.Total.Round(time.Millisecond), r.T0.Round(time.Microsecond), r.Update.Round(time.Microsecond),
		r.Fixing.Round(time.Microsecond), r.Pricing.Round(time.Microsecond))
	if r.Errors > 0 {
		fmt.Fprintf(w, "  Errors:  %d pricing errors, cells left at zero\n", r.Errors)
	}
	if r.Message != "" {
		fmt.Fprintf(w, "  Failure: %s\n", r.Message)
	}
}
