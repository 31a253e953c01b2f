package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
)

type fakeScreener struct {
	candidates []contracts.Candidate
}

func (f *fakeScreener) ListDecliners(context.Context) []contracts.Candidate {
	return f.candidates
}

type fakeEvaluator struct {
	metrics   map[string]contracts.RangeMetrics
	evalErrs  map[string]error
	closes    map[string]decimal.Decimal
	closeErrs map[string]error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, c contracts.Candidate) (contracts.RangeMetrics, error) {
	if err, ok := f.evalErrs[c.Symbol]; ok {
		return contracts.RangeMetrics{}, err
	}
	m, ok := f.metrics[c.Symbol]
	if !ok {
		return contracts.RangeMetrics{}, errors.New("unexpected symbol " + c.Symbol)
	}
	return m, nil
}

func (f *fakeEvaluator) LatestClose(_ context.Context, symbol string) (decimal.Decimal, error) {
	if err, ok := f.closeErrs[symbol]; ok {
		return decimal.Zero, err
	}
	c, ok := f.closes[symbol]
	if !ok {
		return decimal.Zero, errors.New("unexpected symbol " + symbol)
	}
	return c, nil
}

// memLedger mirrors the single-statement semantics of the Postgres ledger
type memLedger struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]contracts.Position
	writes    int
	insertErr error
	openErr   error
	closeErr  error
}

func newMemLedger(positions ...contracts.Position) *memLedger {
	l := &memLedger{rows: map[int64]contracts.Position{}}
	for _, p := range positions {
		l.nextID++
		p.ID = l.nextID
		l.rows[p.ID] = p
	}
	return l
}

func (l *memLedger) InsertPosition(_ context.Context, pos *contracts.Position) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return 0, l.insertErr
	}
	l.nextID++
	row := *pos
	row.ID = l.nextID
	row.BuyDate = time.Date(2024, 6, 3, 15, 45, 0, 0, time.UTC)
	l.rows[row.ID] = row
	l.writes++
	return row.ID, nil
}

func (l *memLedger) OpenPositions(context.Context) ([]contracts.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return nil, l.openErr
	}
	var open []contracts.Position
	for _, p := range l.rows {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open, nil
}

func (l *memLedger) ClosePosition(_ context.Context, id int64, c contracts.Closing) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closeErr != nil {
		return l.closeErr
	}
	row, ok := l.rows[id]
	if !ok || !row.IsOpen() {
		return contracts.ErrPositionNotOpen
	}
	profit := c.Profit
	sellDate := c.SellDate
	reason := c.SellReason
	row.CurrentPrice = c.CurrentPrice
	row.Profit = &profit
	row.SellDate = &sellDate
	row.SellReason = &reason
	l.rows[id] = row
	l.writes++
	return nil
}

func (l *memLedger) all() []contracts.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]contracts.Position, 0, len(l.rows))
	for _, p := range l.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
