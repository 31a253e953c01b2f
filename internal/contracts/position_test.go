package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPosition_Lifecycle(t *testing.T) {
	pos := Position{
		Ticker:       "Z",
		AverageCost:  d("80"),
		Quantity:     10,
		CurrentPrice: d("80"),
		TargetPrice:  d("100"),
	}

	assert.True(t, pos.IsOpen())
	assert.Equal(t, StatusActive, pos.Status())
	assert.Equal(t, "800", pos.MarketValue().String())
	assert.Equal(t, "210", pos.RealizedProfit(d("101")).String())
	assert.Equal(t, "-50", pos.RealizedProfit(d("75")).String())

	sold := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	pos.SellDate = &sold
	assert.False(t, pos.IsOpen())
	assert.Equal(t, StatusClosed, pos.Status())
}

func TestPosition_ZeroQuantity(t *testing.T) {
	pos := Position{AverageCost: d("5000"), Quantity: 0, CurrentPrice: d("5000")}
	assert.True(t, pos.MarketValue().IsZero())
	assert.True(t, pos.RealizedProfit(d("6000")).IsZero())
}
