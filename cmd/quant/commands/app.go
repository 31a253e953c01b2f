package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/dipbot/internal/api"
	"github.com/wonny/dipbot/internal/engine"
	"github.com/wonny/dipbot/internal/evaluator"
	"github.com/wonny/dipbot/internal/external/fmp"
	"github.com/wonny/dipbot/internal/external/yahoo"
	"github.com/wonny/dipbot/internal/ledger"
	"github.com/wonny/dipbot/internal/runner"
	"github.com/wonny/dipbot/internal/screener"
	"github.com/wonny/dipbot/internal/strategyconfig"
	"github.com/wonny/dipbot/pkg/config"
	"github.com/wonny/dipbot/pkg/database"
	"github.com/wonny/dipbot/pkg/httputil"
	"github.com/wonny/dipbot/pkg/logger"
	"github.com/wonny/dipbot/pkg/redis"
)

const (
	keyPrefix   = "dipbot"
	runLockTTL  = 30 * time.Minute
	httpTimeout = 20 * time.Second
)

// app holds every long-lived dependency of a command
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	redis      *redis.Client
	strategy   *strategyconfig.Config
	configHash string
	ledger     *ledger.Repository
	engine     *engine.Engine
	runner     *runner.Runner
	stream     *api.RunStream
}

// loadConfig loads env config and applies global flags
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if strategyFile != "" {
		cfg.StrategyConfigPath = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}

// newLedgerApp connects only what ledger-only commands need
func newLedgerApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redis.Disabled(),
		ledger: ledger.NewRepository(db.Pool),
	}, nil
}

// newApp wires the full strategy stack. withStream adds the websocket
// publisher used by the API server.
func newApp(ctx context.Context, withStream bool) (*app, error) {
	a, err := newLedgerApp(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.wireStrategy(ctx, withStream); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) wireStrategy(ctx context.Context, withStream bool) error {
	strategy, err := strategyconfig.LoadOrDefault(a.cfg.StrategyConfigPath)
	if err != nil {
		return fmt.Errorf("load strategy config: %w", err)
	}
	for _, w := range strategyconfig.CheckWarnings(strategy) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash strategy config: %w", err)
	}
	a.strategy = strategy
	a.configHash = hash

	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// Market data
	httpClient := httputil.NewWithTimeout(a.log, httpTimeout).
		WithLocalLimit(a.cfg.FMP.RatePerSec).
		WithRateLimiter(redis.NewRateLimiter(rc, keyPrefix), redis.FMPRateLimit)
	fmpClient := fmp.NewClient(httpClient, a.cfg.FMP, a.log)
	yahooClient := yahoo.NewClient(a.cfg.Yahoo.RatePerSec, a.log)

	evalConfig := evaluator.DefaultConfig()
	evalConfig.HistoryTTL = strategy.Cache.HistoryTTL
	evalConfig.TargetTTL = strategy.Cache.TargetTTL
	evalConfig.CloseTTL = strategy.Cache.CloseTTL

	eval := evaluator.New(yahooClient, fmpClient, redis.NewCache(rc, keyPrefix), evalConfig, a.log)
	scr := screener.New(fmpClient, a.log)

	a.engine = engine.New(scr, eval, a.ledger, engine.Params{
		PercentileThreshold: strategy.PercentileThreshold(),
		InvestmentPerTrade:  strategy.InvestmentPerTrade(),
		DefaultVersion:      strategy.Meta.Version,
		ConfigHash:          hash,
	}, a.log)

	opts := []runner.Option{
		runner.WithLock(redis.NewLock(rc, keyPrefix, "strategy_run", runLockTTL)),
		runner.WithRecorder(a.ledger),
	}
	if withStream {
		a.stream = api.NewRunStream(a.cfg.CORSOrigins, a.log)
		opts = append(opts, runner.WithPublisher(a.stream))
	}
	a.runner = runner.New(a.engine, a.log, opts...)

	a.log.WithFields(map[string]interface{}{
		"strategy_id": strategy.Meta.StrategyID,
		"version":     strategy.Meta.Version,
		"config_hash": hash,
		"redis":       rc.Enabled(),
	}).Info("Strategy stack initialized")

	return nil
}

// Close releases every connection the app opened
func (a *app) Close() {
	if a.stream != nil {
		a.stream.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
