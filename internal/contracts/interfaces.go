package contracts

import (
	"context"

	"github.com/shopspring/decimal"
)

// Screener lists today's decliners. It never fails: upstream problems
// yield an empty slice.
type Screener interface {
	ListDecliners(ctx context.Context) []Candidate
}

// RangeEvaluator computes range metrics for candidates and the latest close
// for open positions. Any returned error means "skip this symbol".
type RangeEvaluator interface {
	Evaluate(ctx context.Context, candidate Candidate) (RangeMetrics, error)
	LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Ledger persists positions. Every method is a single atomic statement.
type Ledger interface {
	InsertPosition(ctx context.Context, pos *Position) (int64, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	ClosePosition(ctx context.Context, id int64, closing Closing) error
}

// RunRecorder stores finished run reports
type RunRecorder interface {
	SaveRun(ctx context.Context, report *RunReport) error
}

// ReportPublisher fans finished run reports out to live subscribers
type ReportPublisher interface {
	Publish(report *RunReport)
}
