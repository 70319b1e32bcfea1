package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/journal"
)

func newJournalCmd(rc *rootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the run journal",
		Long: `Query valuation runs recorded in a SQLite journal.

Subcommands:
  list - List recent runs
  show - Print one run and its pricing errors as Org mode

Examples:
  simcube journal list --db runs.sqlite
  simcube journal show <run-id> --db runs.sqlite`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./simcube.sqlite", "path to SQLite journal DB")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			runs, err := j.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tASOF\tCELLS\tTOTAL\tERRORS\tSTATUS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
					r.RunID, r.Created.Local().Format("2006-01-02 15:04"), dates.Format(r.AsOf),
					r.Cells(), r.Total.Round(time.Millisecond), r.Errors, r.Status)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs, 0 for all")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run as Org mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			rec, err := j.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			errs, err := j.ListErrorsByRunID(args[0])
			if err != nil {
				return fmt.Errorf("query errors: %w", err)
			}
			return rec.WriteOrg(cmd.OutOrStdout(), errs)
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
