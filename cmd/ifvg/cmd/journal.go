package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ifvg/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the scan journal",
	Long: `Query runs, inversions and saved engine state from the SQLite journal.

Subcommands:
  runs       - List runs, optionally for one instrument
  run        - Show one run and its inversions
  state      - Show or clear the saved engine state of an instrument

Examples:
  ifvg journal runs
  ifvg journal runs GC=F
  ifvg journal run 01HS3Q7W6M2Y4KQ2M7E8F9G0AB
  ifvg journal state GC=F --clear`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs [instrument]",
	Short: "List recorded runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run and its inversions",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalStateCmd = &cobra.Command{
	Use:   "state <instrument>",
	Short: "Show the saved engine state of an instrument",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalState,
}

var (
	journalDBPath     string
	journalStateClear bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalStateCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./ifvg.sqlite", "path to SQLite journal DB")
	journalStateCmd.Flags().BoolVar(&journalStateClear, "clear", false, "delete the saved state")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	instrument := ""
	if len(args) == 1 {
		instrument = args[0]
	}
	runs, err := j.ListRuns(cmd.Context(), instrument)
	if err != nil {
		return err
	}

	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	recs, err := j.ListInversions(cmd.Context(), run.RunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printRuns(out, []journal.Run{run})
	fmt.Fprintf(out, "\nATR period %d, multiplier %g, lookback %d\n\n", run.ATRPeriod, run.ATRMultiplier, run.Lookback)
	printInversionRecords(out, recs)
	return nil
}

func runJournalState(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	instrument := args[0]
	if journalStateClear {
		if err := j.DeleteState(cmd.Context(), instrument); err != nil {
			return err
		}
		fmt.Printf("✓ Cleared state for %s\n", instrument)
		return nil
	}

	st, err := j.LoadState(cmd.Context(), instrument)
	if err != nil {
		return err
	}
	printState(cmd.OutOrStdout(), instrument, st)
	return nil
}
