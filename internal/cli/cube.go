package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/dates"
)

func newCubeCmd(rc *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cube",
		Short: "Inspect saved NPV cubes",
		Long: `Read cube and aggregation files written by run.

Subcommands:
  inspect - Print the exposure profile of a cube
  check   - Verify a cube against its aggregation data

Examples:
  simcube cube inspect cube.bin --aggregation aggregation.bin
  simcube cube inspect cube.bin --trade ZB_EUR_10Y --quantile 0.99
  simcube cube check cube.bin --aggregation aggregation.bin`,
	}
	cmd.AddCommand(newCubeInspectCmd(rc), newCubeCheckCmd(rc))
	return cmd
}

func newCubeInspectCmd(rc *rootOptions) *cobra.Command {
	var (
		aggPath  string
		trades   []string
		depth    int
		quantile float64
	)
	cmd := &cobra.Command{
		Use:   "inspect <cube-file>",
		Short: "Print the exposure profile of a cube",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cube.Load(args[0])
			if err != nil {
				return fmt.Errorf("load cube: %w", err)
			}
			var asd *cube.AggregationData
			if aggPath != "" {
				if asd, err = cube.LoadAggregation(aggPath); err != nil {
					return fmt.Errorf("load aggregation data: %w", err)
				}
			}
			prof, err := cube.Profile(c, asd, trades, depth, quantile)
			if err != nil {
				return err
			}
			rc.log.Debug().Str("cube", args[0]).Int("dates", len(prof)).Msg("profile computed")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cube %s as of %s: %d trades, %d dates, %d samples, depth %d, %s\n",
				args[0], dates.Format(c.AsOf()), c.NumIDs(), c.NumDates(), c.Samples(), c.Depth(), c.Precision())
			var t0 float64
			for _, tid := range selected(c, trades) {
				i, _ := c.IDIndex(tid)
				v, _ := c.T0(i, depth)
				t0 += v
			}
			fmt.Fprintf(out, "T0 value: %.2f\n\n", t0)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "Date\tMean\tStdDev\tEPE\tENE\tPFE(%g)\t\n", quantile)
			for _, p := range prof {
				fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
					dates.Format(p.Date), p.Mean, p.StdDev, p.EPE, p.ENE, p.PFE)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&aggPath, "aggregation", "a", "", "aggregation data file; values are deflated by its numeraire")
	cmd.Flags().StringSliceVar(&trades, "trade", nil, "restrict to these trade ids (default all)")
	cmd.Flags().IntVar(&depth, "depth", cube.NPVDepth, "depth slot to aggregate")
	cmd.Flags().Float64Var(&quantile, "quantile", 0.95, "PFE quantile")
	return cmd
}

func selected(c cube.Cube, ids []string) []string {
	if len(ids) == 0 {
		return c.IDs()
	}
	return ids
}

func newCubeCheckCmd(rc *rootOptions) *cobra.Command {
	var aggPath string
	cmd := &cobra.Command{
		Use:   "check <cube-file>",
		Short: "Verify a cube against its aggregation data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cube.Load(args[0])
			if err != nil {
				return fmt.Errorf("load cube: %w", err)
			}
			asd, err := cube.LoadAggregation(aggPath)
			if err != nil {
				return fmt.Errorf("load aggregation data: %w", err)
			}
			if err := cube.CheckAggregation(c, asd); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cube and aggregation data agree: %d dates x %d samples\n", c.NumDates(), c.Samples())
			for _, s := range asd.Series() {
				fmt.Fprintf(out, "  %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&aggPath, "aggregation", "a", "", "aggregation data file (required)")
	cmd.MarkFlagRequired("aggregation")
	return cmd
}
