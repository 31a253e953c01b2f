package audit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
)

// PerformanceReport summarizes realized trading results from the ledger
type PerformanceReport struct {
	AsOf time.Time `json:"as_of"`

	// Positions
	OpenPositions   int `json:"open_positions"`
	ClosedPositions int `json:"closed_positions"`

	// Capital
	OpenCost      decimal.Decimal `json:"open_cost"`      // sum of average_cost × quantity, open only
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`   // sum of profit, closed only
	RealizedCost  decimal.Decimal `json:"realized_cost"`  // cost basis of closed positions
	RealizedRetPc decimal.Decimal `json:"realized_ret_pct"`

	// Trading metrics
	WinRate       decimal.Decimal `json:"win_rate"` // 0-1
	AvgWin        decimal.Decimal `json:"avg_win"`
	AvgLoss       decimal.Decimal `json:"avg_loss"`
	ProfitFactor  decimal.Decimal `json:"profit_factor"` // gross win / gross loss, 0 without losses
	AvgHoldingDay decimal.Decimal `json:"avg_holding_days"`
}

// Analyze computes the performance report over ledger rows
func Analyze(positions []contracts.Position, asOf time.Time) *PerformanceReport {
	report := &PerformanceReport{
		AsOf:          asOf,
		OpenCost:      decimal.Zero,
		RealizedPnL:   decimal.Zero,
		RealizedCost:  decimal.Zero,
		RealizedRetPc: decimal.Zero,
		WinRate:       decimal.Zero,
		AvgWin:        decimal.Zero,
		AvgLoss:       decimal.Zero,
		ProfitFactor:  decimal.Zero,
		AvgHoldingDay: decimal.Zero,
	}

	var (
		wins, losses         int
		grossWin, grossLoss  = decimal.Zero, decimal.Zero
		holding              time.Duration
	)

	for i := range positions {
		p := &positions[i]
		cost := p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))

		if p.IsOpen() {
			report.OpenPositions++
			report.OpenCost = report.OpenCost.Add(cost)
			continue
		}

		report.ClosedPositions++
		report.RealizedCost = report.RealizedCost.Add(cost)
		holding += p.SellDate.Sub(p.BuyDate)

		profit := decimal.Zero
		if p.Profit != nil {
			profit = *p.Profit
		}
		report.RealizedPnL = report.RealizedPnL.Add(profit)

		switch {
		case profit.IsPositive():
			wins++
			grossWin = grossWin.Add(profit)
		case profit.IsNegative():
			losses++
			grossLoss = grossLoss.Add(profit.Abs())
		}
	}

	if report.ClosedPositions == 0 {
		return report
	}

	closed := decimal.NewFromInt(int64(report.ClosedPositions))
	report.WinRate = decimal.NewFromInt(int64(wins)).Div(closed).Round(4)
	report.AvgHoldingDay = decimal.NewFromFloat(holding.Hours() / 24).Div(closed).Round(2)

	if report.RealizedCost.IsPositive() {
		report.RealizedRetPc = report.RealizedPnL.Div(report.RealizedCost).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if wins > 0 {
		report.AvgWin = grossWin.Div(decimal.NewFromInt(int64(wins))).Round(4)
	}
	if losses > 0 {
		report.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(losses))).Round(4)
		report.ProfitFactor = grossWin.Div(grossLoss).Round(4)
	}

	return report
}
