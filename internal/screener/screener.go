package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/dipbot/internal/contracts"
	"github.com/wonny/dipbot/pkg/logger"
)

// Feed returns the raw decliner records for today
type Feed interface {
	Losers(ctx context.Context) ([]map[string]interface{}, error)
}

// Screener turns the decliners feed into validated candidates
// ⭐ SSOT: candidate validation and pre-dip derivation live here
type Screener struct {
	feed   Feed
	logger *logger.Logger
}

// New creates a new screener over feed
func New(feed Feed, log *logger.Logger) *Screener {
	return &Screener{
		feed:   feed,
		logger: log.WithComponent("screener"),
	}
}

// ListDecliners returns today's usable decliners in feed order. A feed
// failure yields an empty slice; malformed records are dropped.
func (s *Screener) ListDecliners(ctx context.Context) []contracts.Candidate {
	records, err := s.feed.Losers(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Decliners feed unavailable, no candidates this run")
		return []contracts.Candidate{}
	}

	candidates := make([]contracts.Candidate, 0, len(records))
	for i, record := range records {
		candidate, err := parseRecord(record)
		if err != nil {
			s.logger.WithError(err).WithField("index", i).Debug("Dropping decliner record")
			continue
		}
		candidates = append(candidates, candidate)
	}

	s.logger.WithFields(map[string]interface{}{
		"records":    len(records),
		"candidates": len(candidates),
	}).Info("Screened decliners")

	return candidates
}

// parseRecord validates one feed record
func parseRecord(record map[string]interface{}) (contracts.Candidate, error) {
	if record == nil {
		return contracts.Candidate{}, fmt.Errorf("%w: null record", contracts.ErrInvalidCandidate)
	}

	symbol, ok := record["symbol"].(string)
	if !ok {
		return contracts.Candidate{}, fmt.Errorf("%w: missing symbol", contracts.ErrInvalidCandidate)
	}

	price, err := toDecimal(record["price"])
	if err != nil {
		return contracts.Candidate{}, fmt.Errorf("%w: %s price: %v", contracts.ErrInvalidCandidate, symbol, err)
	}

	changePct, err := toDecimal(record["changesPercentage"])
	if err != nil {
		return contracts.Candidate{}, fmt.Errorf("%w: %s changesPercentage: %v", contracts.ErrInvalidCandidate, symbol, err)
	}

	return contracts.NewCandidate(symbol, price, changePct)
}

// toDecimal converts a JSON number or numeric string to a decimal
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("missing")
	case float64:
		return decimal.NewFromFloat(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		// FMP has shipped percentages like "(-10.5%)" in older payloads.
		cleaned := strings.Trim(strings.TrimSpace(val), "()%+")
		if cleaned == "" {
			return decimal.Zero, fmt.Errorf("empty number")
		}
		return decimal.NewFromString(cleaned)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}
