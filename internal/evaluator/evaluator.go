package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
	"github.com/wonny/dipbot/pkg/redis"
)

// Skip conditions. Every error returned by the evaluator wraps one of these.
var (
	ErrNoHistory       = errors.New("no price history")
	ErrNoTarget        = errors.New("no target price")
	ErrDegenerateRange = errors.New("degenerate 52-week range")
	ErrUpstream        = errors.New("market data unavailable")
)

// HistorySource provides daily bars, oldest first
type HistorySource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
}

// TargetSource provides an analyst price target; ok=false means no coverage
type TargetSource interface {
	PriceTarget(ctx context.Context, symbol string) (target decimal.Decimal, ok bool, err error)
}

// Config controls look-back windows and cache lifetimes
type Config struct {
	Lookback    time.Duration // range window, one year by default
	CloseWindow time.Duration // window searched for the latest close
	HistoryTTL  time.Duration
	TargetTTL   time.Duration
	CloseTTL    time.Duration
}

// DefaultConfig returns the production windows
func DefaultConfig() Config {
	return Config{
		Lookback:    365 * 24 * time.Hour,
		CloseWindow: 7 * 24 * time.Hour,
		HistoryTTL:  redis.TTLLong,
		TargetTTL:   redis.TTLMedium,
		CloseTTL:    redis.TTLShort,
	}
}

// Evaluator computes 52-week range metrics and latest closes
// ⭐ SSOT: range and percentile math lives here
type Evaluator struct {
	history HistorySource
	targets TargetSource
	cache   *redis.Cache
	config  Config
	logger  *logger.Logger
	now     func() time.Time
}

// New creates a new evaluator. cache may wrap a disabled Redis client.
func New(history HistorySource, targets TargetSource, cache *redis.Cache, cfg Config, log *logger.Logger) *Evaluator {
	return &Evaluator{
		history: history,
		targets: targets,
		cache:   cache,
		config:  cfg,
		logger:  log.WithComponent("evaluator"),
		now:     time.Now,
	}
}

// Evaluate fetches one year of history and the analyst target for the
// candidate and places its pre-dip price inside the 52-week range.
func (e *Evaluator) Evaluate(ctx context.Context, candidate contracts.Candidate) (contracts.RangeMetrics, error) {
	symbol := candidate.Symbol

	bars, err := e.yearOfBars(ctx, symbol)
	if err != nil {
		return contracts.RangeMetrics{}, err
	}
	if len(bars) == 0 {
		return contracts.RangeMetrics{}, fmt.Errorf("%s: %w", symbol, ErrNoHistory)
	}

	target, err := e.target(ctx, symbol)
	if err != nil {
		return contracts.RangeMetrics{}, err
	}

	low, high := Range(bars)
	pct, ok := contracts.Percentile(candidate.PreDipPrice, low, high)
	if !ok {
		return contracts.RangeMetrics{}, fmt.Errorf("%s: low %s high %s: %w", symbol, low, high, ErrDegenerateRange)
	}

	return contracts.RangeMetrics{
		Week52Low:        low,
		Week52High:       high,
		PreDipPercentile: pct,
		TargetPrice:      target,
	}, nil
}

// LatestClose returns the close of the most recent daily bar
func (e *Evaluator) LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := redis.CloseKey(symbol)

	var cached decimal.Decimal
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	to := e.now()
	bars, err := e.history.DailyBars(ctx, symbol, to.Add(-e.config.CloseWindow), to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w: %v", symbol, ErrUpstream, err)
	}
	if len(bars) == 0 {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrNoHistory)
	}

	closePrice := bars[len(bars)-1].Close
	e.cacheSet(ctx, key, closePrice, e.config.CloseTTL)

	return closePrice, nil
}

// Range returns the minimum low and maximum high across bars
func Range(bars []contracts.Bar) (low, high decimal.Decimal) {
	for i, bar := range bars {
		if i == 0 || bar.Low.LessThan(low) {
			low = bar.Low
		}
		if i == 0 || bar.High.GreaterThan(high) {
			high = bar.High
		}
	}
	return low, high
}

func (e *Evaluator) yearOfBars(ctx context.Context, symbol string) ([]contracts.Bar, error) {
	to := e.now()
	key := redis.HistoryKey(symbol, to.UTC().Format("2006-01-02"))

	var cached []contracts.Bar
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	bars, err := e.history.DailyBars(ctx, symbol, to.Add(-e.config.Lookback), to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", symbol, ErrUpstream, err)
	}

	if len(bars) > 0 {
		e.cacheSet(ctx, key, bars, e.config.HistoryTTL)
	}
	return bars, nil
}

func (e *Evaluator) target(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := redis.TargetKey(symbol)

	var cached decimal.Decimal
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	target, ok, err := e.targets.PriceTarget(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w: %v", symbol, ErrUpstream, err)
	}
	if !ok || !target.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrNoTarget)
	}

	e.cacheSet(ctx, key, target, e.config.TargetTTL)
	return target, nil
}

// cacheGet treats cache failures as misses
func (e *Evaluator) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if e.cache == nil {
		return false
	}
	found, err := e.cache.Get(ctx, key, dest)
	if err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	return found
}

func (e *Evaluator) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, value, ttl); err != nil {
		e.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// SkipReason maps an evaluator error to a short machine-readable reason
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrNoHistory):
		return "no_history"
	case errors.Is(err, ErrNoTarget):
		return "no_target"
	case errors.Is(err, ErrDegenerateRange):
		return "degenerate_range"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "evaluation_failed"
	}
}
