package contracts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPositionNotOpen is returned when closing a position that is already sold
var ErrPositionNotOpen = errors.New("position is not open")

// SellReasonTargetReached is recorded when the latest close meets the target
const SellReasonTargetReached = "TARGET_REACHED"

// PositionStatus is the derived lifecycle state of a position
type PositionStatus string

const (
	StatusActive PositionStatus = "Active"
	StatusClosed PositionStatus = "Closed"
)

// Position is one ledger row. It is created Open and closed at most once.
type Position struct {
	ID               int64            `json:"id"`
	Ticker           string           `json:"ticker"`
	BuyDate          time.Time        `json:"buy_date"`
	AverageCost      decimal.Decimal  `json:"average_cost"`
	Quantity         int64            `json:"quantity"`
	CurrentPrice     decimal.Decimal  `json:"current_price"`
	TargetPrice      decimal.Decimal  `json:"target_price"`
	Profit           *decimal.Decimal `json:"profit"`
	SellDate         *time.Time       `json:"sell_date"`
	SellReason       *string          `json:"sell_reason"`
	PreDipPrice      decimal.Decimal  `json:"pre_dip_price"`
	Week52Low        decimal.Decimal  `json:"week52_low"`
	Week52High       decimal.Decimal  `json:"week52_high"`
	PreDipPercentile decimal.Decimal  `json:"pre_dip_percentile"`
	StrategyVersion  string           `json:"strategy_version"`
}

// IsOpen reports whether the position has not been sold
func (p *Position) IsOpen() bool {
	return p.SellDate == nil
}

// Status returns Active for open positions and Closed otherwise
func (p *Position) Status() PositionStatus {
	if p.IsOpen() {
		return StatusActive
	}
	return StatusClosed
}

// MarketValue is current price times quantity
func (p *Position) MarketValue() decimal.Decimal {
	return p.CurrentPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// RealizedProfit is (price - average cost) * quantity
func (p *Position) RealizedProfit(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.AverageCost).Mul(decimal.NewFromInt(p.Quantity))
}

// Closing carries the fields written when a position is sold
type Closing struct {
	CurrentPrice decimal.Decimal
	Profit       decimal.Decimal
	SellDate     time.Time
	SellReason   string
}
