package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipbot/internal/audit"
)

// performanceCmd represents the performance command
var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Summarize realized trading results",
	Long: `Compute win rate, profit factor and realized P&L over the whole ledger.

Example:
  go run ./cmd/quant performance`,
	RunE: runPerformance,
}

func init() {
	rootCmd.AddCommand(performanceCmd)
}

func runPerformance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newLedgerApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	positions, err := a.ledger.AllPositions(ctx)
	if err != nil {
		return err
	}

	PrintPerformance(audit.Analyze(positions, time.Now().UTC()))
	return nil
}
