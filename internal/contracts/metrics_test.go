package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	pct, ok := Percentile(d("100"), d("50"), d("150"))
	assert.True(t, ok)
	assert.Equal(t, "50", pct.String())

	pct, ok = Percentile(d("60"), d("10"), d("70"))
	assert.True(t, ok)
	assert.Equal(t, "83.33", pct.Round(2).String())

	// Unbounded above and below the range.
	pct, ok = Percentile(d("200"), d("50"), d("150"))
	assert.True(t, ok)
	assert.Equal(t, "150", pct.String())

	pct, ok = Percentile(d("0"), d("50"), d("150"))
	assert.True(t, ok)
	assert.Equal(t, "-50", pct.String())
}

func TestPercentile_Degenerate(t *testing.T) {
	_, ok := Percentile(d("100"), d("80"), d("80"))
	assert.False(t, ok)

	_, ok = Percentile(d("100"), d("90"), d("80"))
	assert.False(t, ok)
}
