package contracts

import "time"

// Side is the half of the pipeline an item belongs to
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome tags the result of processing one candidate or position
type Outcome string

const (
	OutcomeAccepted Outcome = "ACCEPTED" // rule passed (and ledger written when executing)
	OutcomeRejected Outcome = "REJECTED" // data was complete, rule said no
	OutcomeSkipped  Outcome = "SKIPPED"  // missing or degenerate data, batch continues
	OutcomeFatal    Outcome = "FATAL"    // ledger failure, run aborts
)

// ItemResult records the decision for one symbol
type ItemResult struct {
	Side       Side    `json:"side"`
	Symbol     string  `json:"symbol"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	Quantity   int64   `json:"quantity,omitempty"`
	PositionID int64   `json:"position_id,omitempty"`
}

// RunReport is the result of one strategy invocation. Buys and Sells only
// list accepted symbols, in processing order.
type RunReport struct {
	RunID           string       `json:"run_id"`
	Execute         bool         `json:"execute"`
	StrategyVersion string       `json:"strategy_version"`
	ConfigHash      string       `json:"config_hash,omitempty"`
	Buys            []string     `json:"buys"`
	Sells           []string     `json:"sells"`
	Items           []ItemResult `json:"items"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	Error           string       `json:"error,omitempty"`
}

// NewRunReport returns a report with non-nil result slices
func NewRunReport(runID string, execute bool, version string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:           runID,
		Execute:         execute,
		StrategyVersion: version,
		Buys:            []string{},
		Sells:           []string{},
		Items:           []ItemResult{},
		StartedAt:       startedAt,
	}
}

// Record appends an item and, when accepted, its symbol to Buys or Sells
func (r *RunReport) Record(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Outcome != OutcomeAccepted {
		return
	}
	switch item.Side {
	case SideBuy:
		r.Buys = append(r.Buys, item.Symbol)
	case SideSell:
		r.Sells = append(r.Sells, item.Symbol)
	}
}

// Count returns how many items ended with the given outcome
func (r *RunReport) Count(outcome Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == outcome {
			n++
		}
	}
	return n
}
