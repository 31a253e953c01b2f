package yahoo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/time/rate"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

// chartFunc fetches daily bars for [from, to]
type chartFunc func(symbol string, from, to time.Time) ([]contracts.Bar, error)

// Client fetches daily price history from Yahoo Finance
// ⭐ SSOT: Yahoo Finance calls are made only through this client
type Client struct {
	limiter *rate.Limiter
	logger  *logger.Logger
	fetch   chartFunc
}

// NewClient creates a Yahoo history client limited to perSecond requests
func NewClient(perSecond int, log *logger.Logger) *Client {
	return &Client{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  log.WithComponent("yahoo"),
		fetch:   fetchChart,
	}
}

// DailyBars returns the daily bars for symbol between from and to, oldest
// first. Bars with a missing (non-positive) high, low or close are dropped.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("yahoo rate limit wait: %w", err)
	}

	raw, err := c.fetch(symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}

	bars := make([]contracts.Bar, 0, len(raw))
	for _, bar := range raw {
		if !bar.High.IsPositive() || !bar.Low.IsPositive() || !bar.Close.IsPositive() {
			continue
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"count":   len(bars),
		"dropped": len(raw) - len(bars),
	}).Debug("Fetched daily bars")

	return bars, nil
}

// fetchChart reads the Yahoo chart endpoint through finance-go
func fetchChart(symbol string, from, to time.Time) ([]contracts.Bar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	bars := make([]contracts.Bar, 0)
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, contracts.Bar{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return bars, nil
}
