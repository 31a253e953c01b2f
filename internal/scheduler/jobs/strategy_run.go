package jobs

import (
	"context"
	"errors"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/internal/runner"
	"github.com/wonny/dipbot/pkg/logger"
)

// StrategyRunner runs one strategy invocation
type StrategyRunner interface {
	Run(ctx context.Context, execute bool, version string) (*contracts.RunReport, error)
}

// StrategyRunJob runs the dip-reversion strategy on a cron schedule
type StrategyRunJob struct {
	runner   StrategyRunner
	schedule string
	execute  bool
	version  string
	logger   *logger.Logger
}

// NewStrategyRunJob creates a new strategy run job
func NewStrategyRunJob(r StrategyRunner, schedule string, execute bool, version string, log *logger.Logger) *StrategyRunJob {
	return &StrategyRunJob{
		runner:   r,
		schedule: schedule,
		execute:  execute,
		version:  version,
		logger:   log,
	}
}

// Name returns the job name
func (j *StrategyRunJob) Name() string {
	return "strategy_run"
}

// Schedule returns the cron schedule
func (j *StrategyRunJob) Schedule() string {
	return j.schedule
}

// MaxRetries is 0: a failed run is picked up by the next scheduled one
func (j *StrategyRunJob) MaxRetries() int {
	return 0
}

// Run executes one strategy run
func (j *StrategyRunJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx, j.execute, j.version)
	if errors.Is(err, runner.ErrRunInProgress) {
		j.logger.Warn("Strategy run skipped, another run is in progress")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"execute": report.Execute,
		"buys":    report.Buys,
		"sells":   report.Sells,
	}).Info("Scheduled strategy run completed")

	return nil
}
