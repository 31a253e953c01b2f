package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
	"github.com/wonny/dipbot/pkg/redis"
)

// ErrRunInProgress is returned when another run holds the run lock
var ErrRunInProgress = errors.New("strategy run already in progress")

const saveTimeout = 5 * time.Second

// Strategy is the decision engine as seen by the runner
type Strategy interface {
	RunStrategy(ctx context.Context, execute bool, version string) (*contracts.RunReport, error)
}

// Runner serializes strategy runs and records their reports.
// Runs are exclusive within the process and, with Redis enabled, across
// processes.
type Runner struct {
	strategy  Strategy
	lock      *redis.Lock
	recorder  contracts.RunRecorder
	publisher contracts.ReportPublisher
	logger    *logger.Logger

	mu sync.Mutex
}

// Option configures a Runner
type Option func(*Runner)

// WithLock adds a distributed run lock
func WithLock(lock *redis.Lock) Option {
	return func(r *Runner) { r.lock = lock }
}

// WithRecorder persists every finished report
func WithRecorder(recorder contracts.RunRecorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

// WithPublisher pushes every finished report to live subscribers
func WithPublisher(publisher contracts.ReportPublisher) Option {
	return func(r *Runner) { r.publisher = publisher }
}

// New creates a new runner
func New(strategy Strategy, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		strategy: strategy,
		logger:   log.WithComponent("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one strategy invocation. The report is returned even when
// the run fails part way.
func (r *Runner) Run(ctx context.Context, execute bool, version string) (*contracts.RunReport, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.WithError(err).Warn("Failed to release run lock")
		}
	}()

	report, runErr := r.strategy.RunStrategy(ctx, execute, version)
	if report == nil {
		return nil, runErr
	}

	r.record(ctx, report)
	if r.publisher != nil {
		r.publisher.Publish(report)
	}

	return report, runErr
}

func (r *Runner) acquire(ctx context.Context) (func(context.Context) error, error) {
	if r.lock == nil {
		return func(context.Context) error { return nil }, nil
	}

	release, err := r.lock.Acquire(ctx)
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return release, nil
}

// record is best effort; a failed save never fails the run
func (r *Runner) record(ctx context.Context, report *contracts.RunReport) {
	if r.recorder == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := r.recorder.SaveRun(saveCtx, report); err != nil {
		r.logger.WithError(err).WithField("run_id", report.RunID).Warn("Failed to save run report")
	}
}
