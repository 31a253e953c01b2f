package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create ledger tables",
	Long: `Create the transactions and strategy_runs tables and their indexes.

--reset drops both tables first and erases the ledger.

Example:
  go run ./cmd/quant migrate
  go run ./cmd/quant migrate --reset`,
	RunE: runMigrate,
}

var migrateReset bool

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop existing tables first")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newLedgerApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrateReset {
		PrintWarning("Dropping transactions and strategy_runs")
	}

	if err := a.ledger.Migrate(ctx, migrateReset); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	PrintSuccess("Ledger schema is up to date")
	return nil
}
