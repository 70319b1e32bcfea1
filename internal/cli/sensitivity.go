package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/config"
	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/engine"
	"github.com/rustyeddy/simcube/portfolio"
	"github.com/rustyeddy/simcube/scenario"
	"github.com/rustyeddy/simcube/sensitivity"
	"github.com/rustyeddy/simcube/simmarket"
)

// shiftRun holds what the sensitivity and stress commands share.
type shiftRun struct {
	cfg      *config.Config
	market   *simmarket.Market
	trades   *portfolio.Portfolio
	closeGen func() error
}

func newShiftRun(rc *rootOptions) (*shiftRun, error) {
	cfg, err := rc.loadConfig()
	if err != nil {
		return nil, err
	}
	asof, err := cfg.AsOf()
	if err != nil {
		return nil, err
	}
	p, err := portfolio.FromConfig(asof, cfg.Portfolio)
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	// bumped scenarios replace the configured source
	cfg.Scenarios.Input, cfg.Scenarios.Dump = "", ""
	m, closeGen, err := buildMarket(cfg, rc.log, nil)
	if err != nil {
		return nil, err
	}
	return &shiftRun{cfg: cfg, market: m, trades: p, closeGen: closeGen}, nil
}

func (r *shiftRun) run(cmd *cobra.Command, rc *rootOptions, gen *scenario.ShiftGenerator, cubePath string) (*sensitivity.Cube, error) {
	sc, err := sensitivity.Run(cmd.Context(), r.market, r.trades, gen,
		engine.WithLogger(rc.log),
		engine.WithWorkers(r.cfg.Workers()),
		engine.WithContinueOnError(r.cfg.Run.ContinueOnError),
	)
	if err != nil {
		return nil, err
	}
	if cubePath != "" {
		if err := cube.Save(cubePath, sc.NPVCube()); err != nil {
			return nil, fmt.Errorf("save cube: %w", err)
		}
	}
	return sc, nil
}

func formatShift(s scenario.Shift) string { return fmt.Sprintf("%s %g", s.Type, s.Size) }

func newSensitivityCmd(rc *rootOptions) *cobra.Command {
	var (
		threshold float64
		cubePath  string
	)
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Bump each risk factor up and down and report deltas and gammas",
		Long: `Value the portfolio on today's market and on one up and one down bump of
every key whose type has a shift in the sensitivity section of the config,
then on the configured cross bumps. Curve pillars are bumped on the zero
rate. Lines whose delta and gamma are both below --threshold are dropped.

Examples:
  simcube sensitivity --config run.yaml
  simcube sensitivity --threshold 0.01 --cube sensi.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newShiftRun(rc)
			if err != nil {
				return err
			}
			defer r.closeGen()
			if len(r.cfg.Sensitivity.Shifts) == 0 {
				return errors.New("config has no sensitivity shifts")
			}
			gen, err := scenario.NewSensitivityGenerator(r.market.BaseScenario(), r.cfg.Sensitivity, r.market.PillarTime)
			if err != nil {
				return err
			}
			sc, err := r.run(cmd, rc, gen, cubePath)
			if err != nil {
				return err
			}
			recs, err := sc.Records(threshold)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TRADE\tFACTOR\tSHIFT\tBASE NPV\tDELTA\tGAMMA")
			for _, rec := range recs {
				factor, shift := rec.Factor1.String(), formatShift(rec.Shift1)
				if rec.Cross() {
					factor += " x " + rec.Factor2.String()
					shift += " x " + formatShift(rec.Shift2)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.4f\t%.4f\n",
					rec.TradeID, factor, shift, rec.BaseNPV, rec.Delta, rec.Gamma)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "drop lines with |delta| and |gamma| below this")
	cmd.Flags().StringVar(&cubePath, "cube", "", "also save the scenario NPV cube to this path")
	return cmd
}

func newStressCmd(rc *rootOptions) *cobra.Command {
	var cubePath string
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Value the portfolio under the configured stress scenarios",
		Long: `Value the portfolio on today's market and on every scenario of the stress
section of the config, and print the NPV change per trade and in total.

Example:
  simcube stress --config run.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newShiftRun(rc)
			if err != nil {
				return err
			}
			defer r.closeGen()
			gen, err := scenario.NewStressGenerator(r.market.BaseScenario(), r.cfg.Stress, r.market.PillarTime)
			if err != nil {
				return err
			}
			sc, err := r.run(cmd, rc, gen, cubePath)
			if err != nil {
				return err
			}
			recs, err := sc.StressRecords()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tTRADE\tBASE NPV\tNPV\tCHANGE")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\n",
					rec.Label, rec.TradeID, rec.BaseNPV, rec.NPV, rec.Change())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&cubePath, "cube", "", "also save the scenario NPV cube to this path")
	return cmd
}
