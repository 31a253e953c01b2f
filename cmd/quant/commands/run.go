package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the strategy once",
	Long: `Run the buy pass over today's decliners and the sell pass over open
positions, then print the report.

With --dry-run the decisions are reported but the ledger is not written.

Example:
  go run ./cmd/quant run
  go run ./cmd/quant run --dry-run --version v1.1
  go run ./cmd/quant run --json`,
	RunE: runStrategyOnce,
}

var (
	runDryRun  bool
	runVersion string
	runJSON    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report decisions without writing the ledger")
	runCmd.Flags().StringVar(&runVersion, "version", "", "strategy version stamped on new positions")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
}

func runStrategyOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, runErr := a.runner.Run(ctx, !runDryRun, runVersion)
	if report == nil {
		return runErr
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	}

	PrintRunReport(report)
	if runErr != nil {
		PrintWarning(fmt.Sprintf("Run aborted: %v", runErr))
	}
	return runErr
}
