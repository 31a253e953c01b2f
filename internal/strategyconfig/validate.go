package strategyconfig

import (
	"fmt"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError is a hard failure; the process must not start
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-value violation that only gets logged
type Warning struct {
	Code    string
	Message string
}

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if !versionPattern.MatchString(cfg.Meta.Version) {
		return ValidationError{"meta.version", "must be 1-32 chars of [A-Za-z0-9._-]"}
	}

	// === Buy ===
	if cfg.Buy.InvestmentPerTrade <= 0 {
		return ValidationError{"buy.investment_per_trade", "must be > 0"}
	}

	// === Schedule ===
	if cfg.Schedule.Enabled {
		if _, err := cronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return ValidationError{"schedule.timezone", err.Error()}
	}

	// === Cache ===
	if cfg.Cache.HistoryTTL < 0 || cfg.Cache.TargetTTL < 0 || cfg.Cache.CloseTTL < 0 {
		return ValidationError{"cache", "ttl must be >= 0"}
	}

	return nil
}

// CheckWarnings returns recommendations that do not block startup
func CheckWarnings(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Buy.PercentileThreshold <= 0 {
		warnings = append(warnings, Warning{
			Code:    "THRESHOLD_NON_POSITIVE",
			Message: "percentile_threshold <= 0 accepts nearly every decliner",
		})
	}
	if cfg.Buy.PercentileThreshold > 100 {
		warnings = append(warnings, Warning{
			Code:    "THRESHOLD_ABOVE_RANGE",
			Message: "percentile_threshold > 100 only buys pre-dip prices above the 52w high",
		})
	}
	if cfg.Buy.InvestmentPerTrade < 100 {
		warnings = append(warnings, Warning{
			Code:    "SMALL_NOTIONAL",
			Message: fmt.Sprintf("investment_per_trade %.2f yields zero-share buys for most symbols", cfg.Buy.InvestmentPerTrade),
		})
	}
	if cfg.Cache.CloseTTL > 15*time.Minute {
		warnings = append(warnings, Warning{
			Code:    "STALE_CLOSE",
			Message: "close_ttl above 15m can delay sells",
		})
	}

	return warnings
}
