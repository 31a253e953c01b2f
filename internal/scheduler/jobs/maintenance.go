package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dipbot/pkg/database"
	"github.com/wonny/dipbot/pkg/logger"
)

// HealthChecker reports database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// LedgerHealthJob pings the ledger database and logs pool usage
type LedgerHealthJob struct {
	db     HealthChecker
	logger *logger.Logger
}

// NewLedgerHealthJob creates a new ledger health job
func NewLedgerHealthJob(db HealthChecker, log *logger.Logger) *LedgerHealthJob {
	return &LedgerHealthJob{
		db:     db,
		logger: log,
	}
}

// Name returns the job name
func (j *LedgerHealthJob) Name() string {
	return "ledger_health"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *LedgerHealthJob) Schedule() string {
	return "0 */5 * * * *"
}

// MaxRetries is 0: the next tick is the retry
func (j *LedgerHealthJob) MaxRetries() int {
	return 0
}

// Run executes the health check
func (j *LedgerHealthJob) Run(ctx context.Context) error {
	status, err := j.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("ledger database unhealthy: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"response_time": status.ResponseTime,
		"total_conns":   status.Stats.TotalConns,
		"idle_conns":    status.Stats.IdleConns,
	}).Debug("Ledger database healthy")

	return nil
}
