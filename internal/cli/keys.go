package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/scenario"
)

func newKeysCmd(rc *rootOptions) *cobra.Command {
	var (
		typeFilter string
		header     bool
	)
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the simulated risk factors and today's values",
		Long: `Build the simulation market from the config and print every scenario key
with its value today. With --header the keys are printed as the header row
a scenario input file must carry.

Examples:
  simcube keys --config run.yaml
  simcube keys --type DiscountCurve
  simcube keys --header > scenarios.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return err
			}
			// keys never read scenarios, so skip input and dump files
			cfg.Scenarios.Input, cfg.Scenarios.Dump = "", ""
			m, closeGen, err := buildMarket(cfg, rc.log, nil)
			if err != nil {
				return err
			}
			defer closeGen()

			var want scenario.KeyType
			if typeFilter != "" {
				if want, err = scenario.ParseKeyType(typeFilter); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			var keys []scenario.Key
			for _, k := range m.Keys() {
				if typeFilter == "" || k.Type == want {
					keys = append(keys, k)
				}
			}
			if header {
				sep, _ := cfg.Separator()
				cols := []string{scenario.DateColumn}
				if cfg.Scenarios.Numeraire {
					cols = append(cols, scenario.NumeraireColumn)
				}
				for _, k := range keys {
					cols = append(cols, k.String())
				}
				fmt.Fprintln(out, strings.Join(cols, string(sep)))
				return nil
			}
			for _, k := range keys {
				v, _ := m.Quote(k)
				fmt.Fprintf(out, "%s\t%s\n", k, strconv.FormatFloat(v, 'g', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "only keys of this type, e.g. DiscountCurve")
	cmd.Flags().BoolVar(&header, "header", false, "print a scenario file header row instead")
	return cmd
}
