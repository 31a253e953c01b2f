package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLC bar
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// RangeMetrics describes where a pre-dip price sits inside the trailing
// 52-week range, together with the analyst target used as the exit
type RangeMetrics struct {
	Week52Low        decimal.Decimal `json:"week52_low"`
	Week52High       decimal.Decimal `json:"week52_high"`
	PreDipPercentile decimal.Decimal `json:"pre_dip_percentile"`
	TargetPrice      decimal.Decimal `json:"target_price"`
}

// PercentileScale is the number of decimal places a percentile keeps in the ledger
const PercentileScale int32 = 2

// Percentile returns (value - low) / (high - low) * 100. ok is false when
// the range is degenerate (high <= low).
func Percentile(value, low, high decimal.Decimal) (pct decimal.Decimal, ok bool) {
	span := high.Sub(low)
	if !span.IsPositive() {
		return decimal.Zero, false
	}
	return value.Sub(low).Div(span).Mul(hundred), true
}
