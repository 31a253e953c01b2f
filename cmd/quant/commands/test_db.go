package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection",
	Long: `Connect to the ledger database and print pool statistics.

This command:
- loads DATABASE_URL from the environment
- connects with startup retries
- runs a health check
- prints connection pool statistics

Example:
  go run ./cmd/quant test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipbot Database Connection Test ===")

	fmt.Println("Connecting to database...")
	a, err := newLedgerApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	defer a.Close()
	fmt.Printf("✅ Connected (ENV: %s)\n", a.cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(a.cfg.Database.URL))

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	fmt.Println("Getting health status...")
	status, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)
	fmt.Printf("   Acquire Count: %d\n", status.Stats.AcquireCount)

	open, err := a.ledger.OpenPositions(ctx)
	if err != nil {
		PrintWarning(fmt.Sprintf("Ledger tables not readable (run `migrate`): %v", err))
		return nil
	}
	fmt.Printf("\n   Open positions: %d\n", len(open))

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a database URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
