package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipbot/internal/api"
	"github.com/wonny/dipbot/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                                   - Health check
  POST /api/run-strategy?execute=true&version=   - Run the strategy
  GET  /api/transactions                         - Latest 100 positions
  GET  /api/runs?limit=20                        - Recent strategy runs
  GET  /ws/runs                                  - Live run reports (websocket)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the cron scheduler in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipbot API Server ===")

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	h := api.Handlers{
		Health:       handlers.NewHealthHandler(a.db, "dipbot"),
		Strategy:     handlers.NewStrategyHandler(a.runner, a.log),
		Transactions: handlers.NewTransactionHandler(a.ledger, a.log),
		Runs:         handlers.NewRunsHandler(a.ledger, a.log),
		Performance:  handlers.NewPerformanceHandler(a.ledger, a.log),
		Stream:       a.stream,
	}
	router := api.NewRouter(h, a.cfg.CORSOrigins, a.log)
	server := api.New(a.cfg, a.log, router)

	if apiWithScheduler {
		sched, err := buildScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
