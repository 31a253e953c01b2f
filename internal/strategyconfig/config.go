package strategyconfig

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// Config is the full dip-reversion strategy definition
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Buy      Buy      `yaml:"buy" json:"buy"`
	Schedule Schedule `yaml:"schedule" json:"schedule"`
	Cache    Cache    `yaml:"cache" json:"cache"`
}

// Meta identifies the strategy. Version is stamped on every position.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Buy holds the entry rule
type Buy struct {
	PercentileThreshold float64 `yaml:"percentile_threshold" json:"percentile_threshold"` // pre-dip percentile of the 52w range
	InvestmentPerTrade  float64 `yaml:"investment_per_trade" json:"investment_per_trade"` // USD notional per buy
}

// Schedule controls the cron-driven run
type Schedule struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Cron     string `yaml:"cron" json:"cron"` // with seconds field
	Timezone string `yaml:"timezone" json:"timezone"`
	Execute  bool   `yaml:"execute" json:"execute"`
}

// Cache holds Redis lifetimes for market data
type Cache struct {
	HistoryTTL time.Duration `yaml:"history_ttl" json:"history_ttl"`
	TargetTTL  time.Duration `yaml:"target_ttl" json:"target_ttl"`
	CloseTTL   time.Duration `yaml:"close_ttl" json:"close_ttl"`
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "dip_reversion",
			Version:    "v1.0",
		},
		Buy: Buy{
			PercentileThreshold: 50,
			InvestmentPerTrade:  2000,
		},
		Schedule: Schedule{
			Enabled:  true,
			Cron:     "0 45 15 * * MON-FRI",
			Timezone: "America/New_York",
			Execute:  true,
		},
		Cache: Cache{
			HistoryTTL: time.Hour,
			TargetTTL:  15 * time.Minute,
			CloseTTL:   time.Minute,
		},
	}
}

// PercentileThreshold returns the buy threshold as a decimal
func (c *Config) PercentileThreshold() decimal.Decimal {
	return decimal.NewFromFloat(c.Buy.PercentileThreshold)
}

// InvestmentPerTrade returns the per-buy notional as a decimal
func (c *Config) InvestmentPerTrade() decimal.Decimal {
	return decimal.NewFromFloat(c.Buy.InvestmentPerTrade)
}

// Location resolves the schedule timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}
