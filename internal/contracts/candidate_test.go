package contracts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPreDipPrice(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		changePct string
		want      string
		wantErr   bool
	}{
		{"ten percent drop", "90", "-10", "100", false},
		{"twenty percent drop", "48", "-20", "60", false},
		{"no change", "50", "0", "50", false},
		{"gain", "110", "10", "100", false},
		{"total loss", "1", "-100", "", true},
		{"beyond total loss", "1", "-150", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PreDipPrice(d(tt.price), d(tt.changePct))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPreDipUndefined)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNewCandidate(t *testing.T) {
	c, err := NewCandidate(" Y ", d("48"), d("-20"))
	require.NoError(t, err)
	assert.Equal(t, "Y", c.Symbol)
	assert.True(t, d("60").Equal(c.PreDipPrice))

	_, err = NewCandidate("", d("48"), d("-20"))
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	_, err = NewCandidate("Z", decimal.Zero, d("-20"))
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	_, err = NewCandidate("Z", d("-1"), d("-20"))
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	_, err = NewCandidate("Z", d("10"), d("-100"))
	assert.ErrorIs(t, err, ErrPreDipUndefined)
}
