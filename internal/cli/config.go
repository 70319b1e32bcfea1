package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/config"
)

func newConfigCmd(rc *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate run configs",
		Long: `Manage run configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate the file given with --config

Examples:
  simcube config init -o run.yaml
  simcube config validate --config run.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  simcube run --config %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "simcube.yaml", "output config file path")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			g, _ := cfg.Grid()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid: %s\n", rc.ConfigPath)
			fmt.Fprintf(out, "  As of:     %s\n", cfg.Market.AsOf)
			fmt.Fprintf(out, "  Grid:      %d dates (%s)\n", len(g.Dates), cfg.Run.Grid)
			fmt.Fprintf(out, "  Samples:   %d\n", cfg.Run.Samples)
			fmt.Fprintf(out, "  Portfolio: %d trades\n", len(cfg.Portfolio))
			fmt.Fprintf(out, "  Cube:      %s\n", cfg.Output.Cube)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
