package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/config"
	"github.com/rustyeddy/simcube/pkg/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	ConfigPath string
	EnvFiles   []string
	LogLevel   string
	Pretty     bool

	log zerolog.Logger
}

// loadConfig reads the run config, then applies .env and SIMCUBE_*
// overrides.
func (rc *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(rc.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(rc.EnvFiles...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config after environment overrides: %w", err)
	}
	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	rc := &rootOptions{log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "simcube",
		Short: "Simcube builds NPV cubes over simulated market scenarios",
		Long: `Simcube prices a portfolio on every date and sample of a scenario
simulation and stores the results in an NPV cube.

The run is described by a single YAML or JSON config: today's market,
the simulation scope, the portfolio, the date grid and the outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVarP(&rc.ConfigPath, "config", "c", "simcube.yaml", "Path to run config (YAML or JSON)")
	cmd.PersistentFlags().StringSliceVar(&rc.EnvFiles, "env", nil, "Optional .env files with SIMCUBE_* overrides")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.Pretty, "pretty", false, "Human readable log output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		rc.log = logger.New(logger.Config{Level: rc.LogLevel, Pretty: rc.Pretty, Out: cmd.ErrOrStderr()})
		logger.SetGlobalLogger(rc.log)
		return nil
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newKeysCmd(rc),
		newSensitivityCmd(rc),
		newStressCmd(rc),
		newCubeCmd(rc),
		newJournalCmd(rc),
		newConfigCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simcube %s\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
