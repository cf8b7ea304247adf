package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatReturn(t *testing.T) {
	assert.Equal(t, "+15.50%", FormatReturn(decimal.RequireFromString("15.5")))
	assert.Equal(t, "+0.00%", FormatReturn(decimal.Zero))
	assert.Equal(t, "-3.25%", FormatReturn(decimal.RequireFromString("-3.25")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.5000 ETH", FormatAmount(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0.0000 ETH", FormatAmount(decimal.Zero))
}

func TestRank(t *testing.T) {
	assert.Equal(t, "🥈", Rank(1))
	assert.Equal(t, "#10", Rank(9))
}

func TestFormatZeroTimes(t *testing.T) {
	assert.Equal(t, "-", FormatDate(time.Time{}))
	assert.Equal(t, "-", FormatTime(time.Time{}))
}
