package strategy

import (
	"fmt"
	"math"
	"time"
)

// StartingCapital is the cash every backtest starts with.
const StartingCapital = 10000.0

// Side is a simulated order side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Trade is one simulated fill.
type Trade struct {
	Date   time.Time `json:"date" yaml:"date"`
	Action Side      `json:"action" yaml:"action"`
	Price  float64   `json:"price" yaml:"price"`
	Shares float64   `json:"shares" yaml:"shares"`
}

// Performance summarises a backtest. Money values are rounded to cents.
type Performance struct {
	TotalReturn    float64 `json:"total_return" yaml:"total_return"`
	FinalValue     float64 `json:"final_value" yaml:"final_value"`
	NumberOfTrades int     `json:"number_of_trades" yaml:"number_of_trades"`
	Strategy       Kind    `json:"strategy" yaml:"strategy"`
	Params         Params  `json:"params" yaml:"params"`
}

// Backtest trades bars long-only: all cash in on a fresh buy signal while
// flat, all out on any sell signal while holding. An open position is
// marked at the last close.
func Backtest(k Kind, p Params, bars []Bar) (Performance, []Trade, error) {
	if len(bars) == 0 {
		return Performance{}, nil, fmt.Errorf("backtest %s: no price data", k)
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	sig, err := Signals(k, p, closes)
	if err != nil {
		return Performance{}, nil, fmt.Errorf("backtest %s: %w", k, err)
	}

	capital := StartingCapital
	position := 0.0
	var trades []Trade
	for i := 1; i < len(bars); i++ {
		price := closes[i]
		switch {
		case sig[i] == 1 && sig[i-1] != 1 && position == 0:
			position = capital / price
			capital = 0
			trades = append(trades, Trade{Date: bars[i].Date, Action: Buy, Price: price, Shares: position})
		case sig[i] == -1 && position > 0:
			capital = position * price
			trades = append(trades, Trade{Date: bars[i].Date, Action: Sell, Price: price, Shares: position})
			position = 0
		}
	}

	final := capital + position*closes[len(closes)-1]
	perf := Performance{
		TotalReturn:    round2((final - StartingCapital) / StartingCapital * 100),
		FinalValue:     round2(final),
		NumberOfTrades: len(trades),
		Strategy:       k,
		Params:         p,
	}
	return perf, trades, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
