package commands

import (
	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent strategy runs",
	Long: `List recorded strategy runs, newest first.

Example:
  go run ./cmd/quant runs --limit 5`,
	RunE: runRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newLedgerApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.ledger.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	PrintRuns(runs)
	return nil
}
