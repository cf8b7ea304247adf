// Package units converts between display values and on-chain integers.
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiDecimals is the number of decimal places in one ETH.
const WeiDecimals = 18

var (
	ErrNegative   = errors.New("value must not be negative")
	ErrTooPrecise = errors.New("too many decimal places")
)

var (
	hundred        = decimal.NewFromInt(100)
	weiPerETH      = decimal.New(1, WeiDecimals)
	maxBasisPoints = new(big.Int).Lsh(big.NewInt(1), 256)
)

// PercentToBasisPoints encodes a percentage as floor(p*100).
func PercentToBasisPoints(p decimal.Decimal) (*big.Int, error) {
	if p.IsNegative() {
		return nil, fmt.Errorf("return %s: %w", p, ErrNegative)
	}
	bp := p.Mul(hundred).Floor().BigInt()
	if bp.Cmp(maxBasisPoints) >= 0 {
		return nil, fmt.Errorf("return %s overflows uint256", p)
	}
	return bp, nil
}

// BasisPointsToPercent decodes a basis-points integer into a percentage.
func BasisPointsToPercent(bp *big.Int) decimal.Decimal {
	if bp == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(bp, -2)
}

// ETHToWei encodes an ETH amount as an integer count of wei. Amounts with
// more than 18 decimal places are rejected rather than truncated.
func ETHToWei(eth decimal.Decimal) (*big.Int, error) {
	if eth.IsNegative() {
		return nil, fmt.Errorf("amount %s: %w", eth, ErrNegative)
	}
	wei := eth.Mul(weiPerETH)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %s: %w (max %d)", eth, ErrTooPrecise, WeiDecimals)
	}
	return wei.BigInt(), nil
}

// WeiToETH decodes a wei integer into ETH.
func WeiToETH(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -WeiDecimals)
}

// ParseETH parses a user-entered ETH amount and encodes it as wei.
func ParseETH(s string) (decimal.Decimal, *big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("invalid amount %q", s)
	}
	wei, err := ETHToWei(d)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return d, wei, nil
}
