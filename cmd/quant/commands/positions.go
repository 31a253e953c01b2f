package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/dipbot/internal/contracts"
)

// positionsCmd represents the positions command
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List ledger positions",
	Long: `List positions by latest activity, or only open ones.

Example:
  go run ./cmd/quant positions
  go run ./cmd/quant positions --open`,
	RunE: runPositions,
}

var (
	positionsLimit int
	positionsOpen  bool
)

func init() {
	rootCmd.AddCommand(positionsCmd)

	positionsCmd.Flags().IntVar(&positionsLimit, "limit", 100, "maximum rows")
	positionsCmd.Flags().BoolVar(&positionsOpen, "open", false, "only open positions")
}

func runPositions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newLedgerApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var positions []contracts.Position
	if positionsOpen {
		positions, err = a.ledger.OpenPositions(ctx)
	} else {
		positions, err = a.ledger.RecentPositions(ctx, positionsLimit)
	}
	if err != nil {
		return err
	}

	PrintPositions(positions)
	return nil
}
