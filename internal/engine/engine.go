package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/internal/evaluator"
	"github.com/wonny/dipbot/pkg/logger"
)

// Params are the strategy knobs applied to every run
type Params struct {
	PercentileThreshold decimal.Decimal // buy when pre-dip percentile >= threshold
	InvestmentPerTrade  decimal.Decimal // notional per accepted buy
	DefaultVersion      string          // used when a run passes no version
	ConfigHash          string          // fingerprint of the loaded strategy file
}

// DefaultParams returns the production defaults
func DefaultParams() Params {
	return Params{
		PercentileThreshold: decimal.NewFromInt(50),
		InvestmentPerTrade:  decimal.NewFromInt(2000),
		DefaultVersion:      "v1.0",
	}
}

// Engine runs the buy and sell passes over the ledger
// ⭐ SSOT: buy and sell rules are decided here only
type Engine struct {
	screener  contracts.Screener
	evaluator contracts.RangeEvaluator
	ledger    contracts.Ledger
	params    Params
	logger    *logger.Logger

	now   func() time.Time
	newID func() string
}

// New creates a new engine
func New(
	screener contracts.Screener,
	evaluator contracts.RangeEvaluator,
	ledger contracts.Ledger,
	params Params,
	log *logger.Logger,
) *Engine {
	return &Engine{
		screener:  screener,
		evaluator: evaluator,
		ledger:    ledger,
		params:    params,
		logger:    log.WithComponent("engine"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Params returns the parameters the engine was built with
func (e *Engine) Params() Params {
	return e.params
}

// RunStrategy screens decliners for buys, then re-checks every open
// position for sells. With execute=false the ledger is never written.
// Positions opened by this run are left to the next run's sell pass, so
// a dry run and a live run report the same sells.
//
// Per-symbol data problems are recorded on the report and skipped. A ledger
// failure aborts the run; the partial report is returned with the error.
func (e *Engine) RunStrategy(ctx context.Context, execute bool, version string) (*contracts.RunReport, error) {
	if version == "" {
		version = e.params.DefaultVersion
	}

	report := contracts.NewRunReport(e.newID(), execute, version, e.now().UTC())
	report.ConfigHash = e.params.ConfigHash

	log := e.logger.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"execute": execute,
		"version": version,
	})
	log.Info("Strategy run started")

	bought := make(map[int64]struct{})
	if err := e.buyPass(ctx, report, bought, log); err != nil {
		return e.fail(report, log, err)
	}
	if err := e.sellPass(ctx, report, bought, log); err != nil {
		return e.fail(report, log, err)
	}

	report.FinishedAt = e.now().UTC()
	log.WithFields(map[string]interface{}{
		"buys":     len(report.Buys),
		"sells":    len(report.Sells),
		"rejected": report.Count(contracts.OutcomeRejected),
		"skipped":  report.Count(contracts.OutcomeSkipped),
	}).Info("Strategy run completed")

	return report, nil
}

func (e *Engine) fail(report *contracts.RunReport, log *logger.Logger, err error) (*contracts.RunReport, error) {
	report.FinishedAt = e.now().UTC()
	report.Error = err.Error()
	log.WithError(err).Error("Strategy run aborted")
	return report, err
}

func (e *Engine) buyPass(ctx context.Context, report *contracts.RunReport, bought map[int64]struct{}, log *logger.Logger) error {
	candidates := e.screener.ListDecliners(ctx)
	log.WithField("candidates", len(candidates)).Info("Screened decliners")

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("buy pass interrupted: %w", err)
		}

		item := contracts.ItemResult{Side: contracts.SideBuy, Symbol: candidate.Symbol}
		itemLog := log.WithField("symbol", candidate.Symbol)

		metrics, err := e.evaluator.Evaluate(ctx, candidate)
		if err != nil {
			item.Outcome = contracts.OutcomeSkipped
			item.Reason = evaluator.SkipReason(err)
			itemLog.WithError(err).Debug("Candidate skipped")
			report.Record(item)
			continue
		}

		if reason, ok := e.decideBuy(candidate, metrics); !ok {
			item.Outcome = contracts.OutcomeRejected
			item.Reason = reason
			report.Record(item)
			continue
		}

		item.Quantity = Quantity(e.params.InvestmentPerTrade, candidate.Price)
		if item.Quantity == 0 {
			itemLog.WithField("price", candidate.Price.String()).Warn("Accepted buy has zero quantity")
		}

		if report.Execute {
			pos := NewPosition(candidate, metrics, item.Quantity, report.StrategyVersion)
			id, err := e.ledger.InsertPosition(ctx, pos)
			if err != nil {
				item.Outcome = contracts.OutcomeFatal
				item.Reason = "ledger_insert_failed"
				report.Record(item)
				return fmt.Errorf("failed to insert position for %s: %w", candidate.Symbol, err)
			}
			item.PositionID = id
			bought[id] = struct{}{}
		}

		item.Outcome = contracts.OutcomeAccepted
		report.Record(item)
		itemLog.WithFields(map[string]interface{}{
			"quantity":   item.Quantity,
			"percentile": metrics.PreDipPercentile.String(),
			"target":     metrics.TargetPrice.String(),
		}).Info("Buy accepted")
	}

	return nil
}

func (e *Engine) sellPass(ctx context.Context, report *contracts.RunReport, bought map[int64]struct{}, log *logger.Logger) error {
	positions, err := e.ledger.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"open_positions":  len(positions),
		"opened_this_run": len(bought),
	}).Info("Checking open positions")

	for i := range positions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sell pass interrupted: %w", err)
		}

		pos := &positions[i]
		if _, ok := bought[pos.ID]; ok {
			continue
		}

		item := contracts.ItemResult{
			Side:       contracts.SideSell,
			Symbol:     pos.Ticker,
			Quantity:   pos.Quantity,
			PositionID: pos.ID,
		}
		itemLog := log.WithFields(map[string]interface{}{"symbol": pos.Ticker, "position_id": pos.ID})

		closePrice, err := e.evaluator.LatestClose(ctx, pos.Ticker)
		if err != nil {
			item.Outcome = contracts.OutcomeSkipped
			item.Reason = evaluator.SkipReason(err)
			itemLog.WithError(err).Debug("Position skipped")
			report.Record(item)
			continue
		}

		if !ShouldSell(closePrice, pos.TargetPrice) {
			item.Outcome = contracts.OutcomeRejected
			item.Reason = "below_target"
			report.Record(item)
			continue
		}

		if report.Execute {
			closing := contracts.Closing{
				CurrentPrice: closePrice,
				Profit:       pos.RealizedProfit(closePrice),
				SellDate:     e.now().UTC(),
				SellReason:   contracts.SellReasonTargetReached,
			}
			err := e.ledger.ClosePosition(ctx, pos.ID, closing)
			if errors.Is(err, contracts.ErrPositionNotOpen) {
				item.Outcome = contracts.OutcomeSkipped
				item.Reason = "already_closed"
				itemLog.Warn("Position was closed concurrently")
				report.Record(item)
				continue
			}
			if err != nil {
				item.Outcome = contracts.OutcomeFatal
				item.Reason = "ledger_update_failed"
				report.Record(item)
				return fmt.Errorf("failed to close position %d (%s): %w", pos.ID, pos.Ticker, err)
			}
		}

		item.Outcome = contracts.OutcomeAccepted
		report.Record(item)
		itemLog.WithFields(map[string]interface{}{
			"close":  closePrice.String(),
			"profit": pos.RealizedProfit(closePrice).String(),
		}).Info("Sell accepted")
	}

	return nil
}

// decideBuy applies the buy rule and names the failed condition
func (e *Engine) decideBuy(c contracts.Candidate, m contracts.RangeMetrics) (string, bool) {
	if m.PreDipPercentile.LessThan(e.params.PercentileThreshold) {
		return "percentile_below_threshold", false
	}
	if !c.Price.LessThan(m.TargetPrice) {
		return "price_not_below_target", false
	}
	return "", true
}

// ShouldSell reports whether the latest close has reached the target
func ShouldSell(closePrice, target decimal.Decimal) bool {
	return closePrice.GreaterThanOrEqual(target)
}

// Quantity is floor(investment / price). A non-positive price buys nothing.
func Quantity(investment, price decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}
	return investment.Div(price).Floor().IntPart()
}

// NewPosition builds the open ledger row for an accepted buy
func NewPosition(c contracts.Candidate, m contracts.RangeMetrics, quantity int64, version string) *contracts.Position {
	return &contracts.Position{
		Ticker:           c.Symbol,
		AverageCost:      c.Price,
		Quantity:         quantity,
		CurrentPrice:     c.Price,
		TargetPrice:      m.TargetPrice,
		PreDipPrice:      c.PreDipPrice,
		Week52Low:        m.Week52Low,
		Week52High:       m.Week52High,
		PreDipPercentile: m.PreDipPercentile.Round(contracts.PercentileScale),
		StrategyVersion:  version,
	}
}
