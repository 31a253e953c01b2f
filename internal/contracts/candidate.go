package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrPreDipUndefined means 1 + change%/100 is not positive (change% ≤ -100)
	ErrPreDipUndefined = errors.New("pre-dip price undefined")
	// ErrInvalidCandidate means a screened record lacks a usable symbol or price
	ErrInvalidCandidate = errors.New("invalid candidate")
)

var hundred = decimal.NewFromInt(100)

// Candidate is one screened decliner, valid for a single run
type Candidate struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	ChangePct   decimal.Decimal `json:"changes_percentage"`
	PreDipPrice decimal.Decimal `json:"pre_dip_price"`
}

// NewCandidate validates the raw fields and derives the pre-dip price
func NewCandidate(symbol string, price, changePct decimal.Decimal) (Candidate, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Candidate{}, fmt.Errorf("%w: empty symbol", ErrInvalidCandidate)
	}
	if !price.IsPositive() {
		return Candidate{}, fmt.Errorf("%w: %s price %s is not positive", ErrInvalidCandidate, symbol, price)
	}

	preDip, err := PreDipPrice(price, changePct)
	if err != nil {
		return Candidate{}, fmt.Errorf("%s: %w", symbol, err)
	}

	return Candidate{
		Symbol:      symbol,
		Price:       price,
		ChangePct:   changePct,
		PreDipPrice: preDip,
	}, nil
}

// PreDipPrice back-derives the price before the move: price / (1 + changePct/100)
func PreDipPrice(price, changePct decimal.Decimal) (decimal.Decimal, error) {
	denominator := decimal.NewFromInt(1).Add(changePct.Div(hundred))
	if !denominator.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: change %s%%", ErrPreDipUndefined, changePct)
	}
	return price.Div(denominator), nil
}
