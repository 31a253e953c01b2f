package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/pkg/config"
	"github.com/wonny/dipbot/pkg/httputil"
	"github.com/wonny/dipbot/pkg/logger"
)

// Client talks to the FinancialModelingPrep REST API
// ⭐ SSOT: FMP calls are made only through this client
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new FMP client
func NewClient(httpClient *httputil.Client, cfg config.FMPConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("fmp"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	return fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
}

// Losers returns today's biggest decliners as raw records. A payload that
// is not a JSON list is reported as an error.
func (c *Client) Losers(ctx context.Context) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/api/v3/stock_market/losers", nil), &records); err != nil {
		return nil, fmt.Errorf("fetch losers: %w", err)
	}

	c.logger.WithField("count", len(records)).Debug("Fetched losers")
	return records, nil
}

// priceTargetConsensus is one row of /api/v4/price-target-consensus
type priceTargetConsensus struct {
	Symbol          string   `json:"symbol"`
	TargetHigh      *float64 `json:"targetHigh"`
	TargetLow       *float64 `json:"targetLow"`
	TargetConsensus *float64 `json:"targetConsensus"`
	TargetMedian    *float64 `json:"targetMedian"`
}

// PriceTarget returns the analyst consensus (mean) target for symbol.
// ok is false when no analyst covers the symbol.
func (c *Client) PriceTarget(ctx context.Context, symbol string) (target decimal.Decimal, ok bool, err error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var rows []priceTargetConsensus
	if err := c.httpClient.GetJSON(ctx, c.endpoint("/api/v4/price-target-consensus", params), &rows); err != nil {
		return decimal.Zero, false, fmt.Errorf("fetch price target for %s: %w", symbol, err)
	}

	for _, row := range rows {
		if row.TargetConsensus == nil || *row.TargetConsensus <= 0 {
			continue
		}
		return decimal.NewFromFloat(*row.TargetConsensus), true, nil
	}

	return decimal.Zero, false, nil
}
