package strategy

import (
	"math/rand/v2"
	"time"
)

// Synthetic price model: daily returns drawn from N(DriftMean, Volatility).
const (
	InitialPrice = 100.0
	DriftMean    = 0.001
	Volatility   = 0.02
	DefaultDays  = 365
)

// Bar is one daily close.
type Bar struct {
	Date   time.Time `json:"date" yaml:"date"`
	Close  float64   `json:"close" yaml:"close"`
	Volume int64     `json:"volume" yaml:"volume"`
}

// GeneratePrices returns days bars ending the day before end. The first
// close is InitialPrice.
func GeneratePrices(rng *rand.Rand, days int, end time.Time) []Bar {
	if days <= 0 {
		return nil
	}
	start := end.Truncate(24*time.Hour).AddDate(0, 0, -days)
	bars := make([]Bar, days)
	price := InitialPrice
	for i := range bars {
		r := DriftMean + Volatility*rng.NormFloat64()
		if i > 0 {
			price *= 1 + r
		}
		bars[i] = Bar{
			Date:   start.AddDate(0, 0, i),
			Close:  price,
			Volume: 1000 + rng.Int64N(9000),
		}
	}
	return bars
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
